// Package render turns a generated plan into Word and PDF documents. Both
// outputs are driven by the same flat block sequence from Walk, so they
// always agree on section order, table of contents and paragraph breaks.
package render

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mzhuang1/chanyeops-sub000/internal/planning"
)

// BlockKind identifies the role of a block in the logical document.
type BlockKind string

const (
	BlockCoverTitle     BlockKind = "cover-title"
	BlockCoverMeta      BlockKind = "cover-meta"
	BlockTOCHeading     BlockKind = "toc-heading"
	BlockTOCEntry       BlockKind = "toc-entry"
	BlockSectionHeading BlockKind = "section-heading"
	BlockParagraph      BlockKind = "paragraph"
)

// Block is one unit of the logical document. Index is the zero-based
// section a toc-entry, section-heading or paragraph belongs to, and -1
// for cover and toc heading blocks.
type Block struct {
	Kind  BlockKind
	Text  string
	Index int
}

// DateLayout formats the generation date on the cover.
const DateLayout = "2006/1/2"

// Walk flattens a plan into cover, table of contents and sections.
func Walk(doc *planning.GeneratedPlanning) []Block {
	blocks := []Block{
		{Kind: BlockCoverTitle, Text: doc.Title, Index: -1},
		{Kind: BlockCoverMeta, Text: "生成时间：" + doc.Metadata.GeneratedAt.Format(DateLayout), Index: -1},
		{Kind: BlockCoverMeta, Text: fmt.Sprintf("总字数：%d字", doc.Metadata.TotalWords), Index: -1},
		{Kind: BlockTOCHeading, Text: "目录", Index: -1},
	}
	for i, s := range doc.Sections {
		blocks = append(blocks, Block{Kind: BlockTOCEntry, Text: numbered(i, s.Title), Index: i})
	}
	for i, s := range doc.Sections {
		blocks = append(blocks, Block{Kind: BlockSectionHeading, Text: numbered(i, s.Title), Index: i})
		for _, p := range SplitParagraphs(s.Content) {
			blocks = append(blocks, Block{Kind: BlockParagraph, Text: p, Index: i})
		}
	}
	return blocks
}

func numbered(i int, title string) string {
	return fmt.Sprintf("%d. %s", i+1, title)
}

var blankLine = regexp.MustCompile(`\n\s*\n`)

// SplitParagraphs splits section content on blank lines. Chunks are trimmed
// and empty chunks dropped.
func SplitParagraphs(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	var out []string
	for _, chunk := range blankLine.Split(content, -1) {
		if t := strings.TrimSpace(chunk); t != "" {
			out = append(out, t)
		}
	}
	return out
}

package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fumiama/go-docx"
	"github.com/mzhuang1/chanyeops-sub000/internal/doctree"
)

// DOCXParser reads Word reference documents. Heading-styled or numbered
// paragraphs open sections; tables are flattened row by row.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	// go-docx needs a ReaderAt+size, so spool to a temp file.
	path, size, err := spoolToTemp(r, "plan-ref-*.docx")
	if err != nil {
		return nil, err
	}
	defer os.Remove(path)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open temp file: %w", err)
	}
	defer f.Close()

	doc, err := docx.Parse(f, size)
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	tree := &doctree.DocTree{Title: baseTitle(filename)}

	var (
		o      outline
		tables int
	)
	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			text := docxParagraphText(it)
			if docxHeadingLevel(it) > 0 || isPolicyHeading(text) {
				o.Heading(text)
			} else {
				o.Text(text)
			}
		case *docx.Table:
			if t := docxTableText(it); t != "" {
				tables++
				o.Text(t)
			}
		}
	}
	o.Finish(tree)
	if tables > 0 {
		tree.SetMeta("tables", tables)
	}
	return tree, nil
}

// docxHeadingLevel returns 1-6 for heading-styled paragraphs, 0 otherwise.
// Documents saved by Chinese Word and WPS name the heading styles by bare
// digits, so "2" counts as level 2.
func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if len(style) == 1 && style[0] >= '1' && style[0] <= '6' {
		return int(style[0] - '0')
	}
	if style == "title" {
		return 1
	}
	if !strings.HasPrefix(style, "heading") {
		return 0
	}
	n := strings.TrimPrefix(style, "heading")
	if len(n) == 1 && n[0] >= '1' && n[0] <= '6' {
		return int(n[0] - '0')
	}
	return 0
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

func docxTableText(t *docx.Table) string {
	var rows []string
	for _, tr := range t.TableRows {
		var cells []string
		for _, tc := range tr.TableCells {
			var parts []string
			for _, p := range tc.Paragraphs {
				if s := docxParagraphText(p); s != "" {
					parts = append(parts, s)
				}
			}
			cells = append(cells, strings.Join(parts, " "))
		}
		if line := strings.Join(cells, " | "); strings.Trim(line, " |") != "" {
			rows = append(rows, line)
		}
	}
	return strings.Join(rows, "\n")
}

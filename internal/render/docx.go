package render

import (
	"bytes"
	"fmt"

	"github.com/fumiama/go-docx"

	"github.com/mzhuang1/chanyeops-sub000/internal/planning"
)

// Paragraph style ids written into the Word document.
const (
	StyleTitle    = "Title"
	StyleHeading1 = "Heading1"
	StyleHeading2 = "Heading2"
)

const bodyFont = "SimSun"

// DOCX renders the plan as a Word document: cover page, table of contents
// on a new page, then every section with a page break before the first.
func DOCX(doc *planning.GeneratedPlanning) ([]byte, error) {
	f := docx.New().WithDefaultTheme().WithA4Page()

	for _, b := range Walk(doc) {
		switch b.Kind {
		case BlockCoverTitle:
			p := f.AddParagraph().Style(StyleTitle).Justification("center")
			font(p.AddText(b.Text)).Bold().Size("44")
			f.AddParagraph()
		case BlockCoverMeta:
			p := f.AddParagraph().Justification("center")
			font(p.AddText(b.Text)).Size("24")
		case BlockTOCHeading:
			p := f.AddParagraph()
			p.AddPageBreaks()
			p.Style(StyleHeading1)
			font(p.AddText(b.Text)).Bold().Size("32")
		case BlockTOCEntry:
			font(f.AddParagraph().AddText(b.Text)).Size("24")
		case BlockSectionHeading:
			p := f.AddParagraph()
			if b.Index == 0 {
				p.AddPageBreaks()
			}
			p.Style(StyleHeading1)
			font(p.AddText(b.Text)).Bold().Size("32")
		case BlockParagraph:
			writeParagraph(f, b.Text)
		default:
			return nil, fmt.Errorf("docx: unknown block kind %q", b.Kind)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write docx: %w", err)
	}
	return buf.Bytes(), nil
}

// writeParagraph emits one content chunk. Inline markdown is reduced to
// plain runs with bold kept; a heading chunk is styled Heading2.
func writeParagraph(f *docx.Docx, chunk string) {
	spans, level := plainParagraph(chunk)
	if len(spans) == 0 {
		return
	}
	p := f.AddParagraph()
	if level > 0 {
		p.Style(StyleHeading2)
		font(p.AddText(spansText(spans))).Bold().Size("28")
		return
	}
	p.Justification("both")
	for _, s := range spans {
		r := font(p.AddText(s.Text)).Size("24")
		if s.Bold {
			r.Bold()
		}
	}
}

func font(r *docx.Run) *docx.Run {
	return r.Font(bodyFont, bodyFont, bodyFont, "eastAsia")
}

package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/mzhuang1/chanyeops-sub000/internal/planning"
)

var pageTemplate = template.Must(template.New("plan").Parse(`<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: 'SimSun', serif; margin: 40px; line-height: 1.6; }
h1 { color: #2c3e50; text-align: center; margin-bottom: 30px; }
h2 { color: #34495e; border-bottom: 2px solid #3498db; padding-bottom: 10px; }
h3 { color: #2c3e50; }
p { text-align: justify; margin-bottom: 15px; }
.cover { text-align: center; margin-bottom: 50px; }
.toc { margin-bottom: 30px; page-break-before: always; }
.section { margin-bottom: 40px; }
.section.first { page-break-before: always; }
@page { size: A4; margin: 2cm; }
</style>
</head>
<body>
<div class="cover">
<h1>{{.Title}}</h1>
{{range .Meta}}<p class="meta">{{.}}</p>
{{end}}</div>
<div class="toc">
<h2>{{.TOCHeading}}</h2>
{{range .TOC}}<p class="toc-entry">{{.}}</p>
{{end}}</div>
{{range $i, $s := .Sections}}<div class="section{{if eq $i 0}} first{{end}}">
<h2>{{$s.Heading}}</h2>
{{range $s.Paragraphs}}<div class="para">{{.}}</div>
{{end}}</div>
{{end}}</body>
</html>
`))

type htmlSection struct {
	Heading    string
	Paragraphs []template.HTML
}

type htmlPage struct {
	Title      string
	Meta       []string
	TOCHeading string
	TOC        []string
	Sections   []*htmlSection
}

// HTML renders the plan as a print-ready page with the same cover, table of
// contents and sections as DOCX. Paragraph chunks are rendered as markdown.
func HTML(doc *planning.GeneratedPlanning) ([]byte, error) {
	page := htmlPage{}
	var current *htmlSection

	for _, b := range Walk(doc) {
		switch b.Kind {
		case BlockCoverTitle:
			page.Title = b.Text
		case BlockCoverMeta:
			page.Meta = append(page.Meta, b.Text)
		case BlockTOCHeading:
			page.TOCHeading = b.Text
		case BlockTOCEntry:
			page.TOC = append(page.TOC, b.Text)
		case BlockSectionHeading:
			current = &htmlSection{Heading: b.Text}
			page.Sections = append(page.Sections, current)
		case BlockParagraph:
			if current == nil {
				return nil, fmt.Errorf("html: paragraph before first section heading")
			}
			frag, err := markdownHTML(b.Text)
			if err != nil {
				return nil, fmt.Errorf("html: render paragraph: %w", err)
			}
			if strings.TrimSpace(frag) == "" {
				continue
			}
			current.Paragraphs = append(current.Paragraphs, template.HTML(frag))
		default:
			return nil, fmt.Errorf("html: unknown block kind %q", b.Kind)
		}
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, page); err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}
	return buf.Bytes(), nil
}

package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/mzhuang1/chanyeops-sub000/internal/doctree"
)

var mdParser = goldmark.New().Parser()

// MarkdownParser reads Markdown notes and drafts. Each heading opens a
// section; list items keep a bullet so enumerations survive flattening.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read markdown: %w", err)
	}
	src, _, err := decodeChinese(raw)
	if err != nil {
		return nil, fmt.Errorf("decode markdown: %w", err)
	}

	doc := mdParser.Parse(text.NewReader(src))
	tree := &doctree.DocTree{Title: baseTitle(filename)}

	var o outline
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			o.Heading(mdInline(node, src))
		case *ast.List:
			var items []string
			for it := node.FirstChild(); it != nil; it = it.NextSibling() {
				if s := mdBlock(it, src); s != "" {
					items = append(items, "• "+s)
				}
			}
			o.Text(strings.Join(items, "\n"))
		case *ast.ThematicBreak, *ast.HTMLBlock:
		default:
			o.Text(mdBlock(n, src))
		}
	}
	o.Finish(tree)
	return tree, nil
}

// mdBlock returns the text of a block node. Code keeps its lines verbatim.
func mdBlock(n ast.Node, src []byte) string {
	switch n.(type) {
	case *ast.CodeBlock, *ast.FencedCodeBlock:
		var buf bytes.Buffer
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(src))
		}
		return strings.TrimSpace(buf.String())
	case *ast.Paragraph, *ast.TextBlock:
		return mdInline(n, src)
	}
	var parts []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if s := mdBlock(c, src); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// mdInline concatenates the inline text under n, dropping markup.
func mdInline(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(t.Value)
		case *ast.CodeSpan:
			for g := t.FirstChild(); g != nil; g = g.NextSibling() {
				if s, ok := g.(*ast.Text); ok {
					buf.Write(s.Segment.Value(src))
				}
			}
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}

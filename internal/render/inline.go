package render

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	xhtml "golang.org/x/net/html"
)

var md = goldmark.New(
	goldmark.WithRendererOptions(
		renderer.WithNodeRenderers(util.Prioritized(rawHTMLText{}, 100)),
	),
)

// rawHTMLText renders raw HTML as its escaped text content, matching what
// plainParagraph keeps for Word output.
type rawHTMLText struct{}

func (rawHTMLText) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindHTMLBlock, renderHTMLBlockText)
	reg.Register(ast.KindRawHTML, renderRawHTMLText)
}

func renderHTMLBlockText(w util.BufWriter, src []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	if t := htmlText(htmlBlockSource(n.(*ast.HTMLBlock), src)); t != "" {
		_, _ = w.WriteString("<p>")
		_, _ = w.WriteString(xhtml.EscapeString(t))
		_, _ = w.WriteString("</p>\n")
	}
	return ast.WalkContinue, nil
}

func renderRawHTMLText(w util.BufWriter, src []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString(xhtml.EscapeString(htmlText(rawHTMLSource(n.(*ast.RawHTML), src))))
	}
	return ast.WalkSkipChildren, nil
}

func htmlBlockSource(n *ast.HTMLBlock, src []byte) []byte {
	var raw []byte
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		raw = append(raw, seg.Value(src)...)
	}
	if n.HasClosure() {
		raw = append(raw, n.ClosureLine.Value(src)...)
	}
	return raw
}

func rawHTMLSource(n *ast.RawHTML, src []byte) []byte {
	var raw []byte
	for i := 0; i < n.Segments.Len(); i++ {
		seg := n.Segments.At(i)
		raw = append(raw, seg.Value(src)...)
	}
	return raw
}

// htmlText returns the visible text of an HTML fragment. Tags, comments and
// script or style bodies are dropped.
func htmlText(raw []byte) string {
	z := xhtml.NewTokenizer(bytes.NewReader(raw))
	var (
		b      strings.Builder
		hidden int
	)
	for {
		switch z.Next() {
		case xhtml.ErrorToken:
			return strings.TrimSpace(b.String())
		case xhtml.StartTagToken:
			if name, _ := z.TagName(); isHiddenTag(name) {
				hidden++
			}
		case xhtml.EndTagToken:
			if name, _ := z.TagName(); isHiddenTag(name) && hidden > 0 {
				hidden--
			}
		case xhtml.TextToken:
			if hidden == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func isHiddenTag(name []byte) bool {
	switch string(name) {
	case "script", "style":
		return true
	}
	return false
}

// span is a run of plain text, optionally bold.
type span struct {
	Text string
	Bold bool
}

// plainParagraph reduces one markdown chunk to text spans. A chunk that is
// a single markdown heading reports its level.
func plainParagraph(chunk string) (spans []span, headingLevel int) {
	src := []byte(chunk)
	doc := md.Parser().Parse(text.NewReader(src))

	if h, ok := doc.FirstChild().(*ast.Heading); ok && h.NextSibling() == nil {
		headingLevel = h.Level
	}

	var (
		buf     strings.Builder
		bold    int
		first   = true
		sawHTML bool
	)
	flush := func(isBold bool) {
		if buf.Len() == 0 {
			return
		}
		if n := len(spans); n > 0 && spans[n-1].Bold == isBold {
			spans[n-1].Text += buf.String()
		} else {
			spans = append(spans, span{Text: buf.String(), Bold: isBold})
		}
		buf.Reset()
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Paragraph, *ast.TextBlock, *ast.Heading, *ast.CodeBlock, *ast.FencedCodeBlock:
			if entering {
				if !first && !isFirstInListItem(n) {
					buf.WriteByte('\n')
				}
				first = false
				if isCode(n) {
					lines := n.Lines()
					for i := 0; i < lines.Len(); i++ {
						seg := lines.At(i)
						buf.Write(bytes.TrimRight(seg.Value(src), "\n"))
						if i < lines.Len()-1 {
							buf.WriteByte('\n')
						}
					}
					return ast.WalkSkipChildren, nil
				}
			}
		case *ast.HTMLBlock:
			sawHTML = true
			if entering {
				if t := htmlText(htmlBlockSource(node, src)); t != "" {
					if !first && !isFirstInListItem(n) {
						buf.WriteByte('\n')
					}
					first = false
					buf.WriteString(t)
				}
			}
		case *ast.RawHTML:
			sawHTML = true
			if entering {
				buf.WriteString(htmlText(rawHTMLSource(node, src)))
			}
			return ast.WalkSkipChildren, nil
		case *ast.ListItem:
			if entering {
				if !first {
					buf.WriteByte('\n')
				}
				first = false
				buf.WriteString(listMarker(node))
			}
		case *ast.Emphasis:
			if node.Level >= 2 {
				if entering {
					flush(bold > 0)
					bold++
				} else {
					flush(true)
					bold--
				}
			}
		case *ast.Text:
			if entering {
				buf.Write(node.Segment.Value(src))
				if node.HardLineBreak() || node.SoftLineBreak() {
					buf.WriteByte('\n')
				}
			}
		case *ast.String:
			if entering {
				buf.Write(node.Value)
			}
		}
		return ast.WalkContinue, nil
	})
	flush(bold > 0)

	if len(spans) == 0 && !sawHTML {
		spans = []span{{Text: chunk}}
	}
	return spans, headingLevel
}

func isCode(n ast.Node) bool {
	switch n.(type) {
	case *ast.CodeBlock, *ast.FencedCodeBlock:
		return true
	}
	return false
}

func isFirstInListItem(n ast.Node) bool {
	_, ok := n.Parent().(*ast.ListItem)
	return ok && n.PreviousSibling() == nil
}

func listMarker(item *ast.ListItem) string {
	list, ok := item.Parent().(*ast.List)
	if !ok || !list.IsOrdered() {
		return "• "
	}
	pos := 0
	for c := list.FirstChild(); c != nil && c != ast.Node(item); c = c.NextSibling() {
		pos++
	}
	return strconv.Itoa(list.Start+pos) + ". "
}

// spansText joins spans into one string.
func spansText(spans []span) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.Text)
	}
	return b.String()
}

// markdownHTML renders one chunk to an HTML fragment. Raw HTML in the
// chunk is reduced to its escaped text.
func markdownHTML(chunk string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(chunk), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

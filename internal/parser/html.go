package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/mzhuang1/chanyeops-sub000/internal/doctree"
)

// HTMLParser reads saved government web pages. The page charset is honoured
// (many portals still serve GBK), site chrome is skipped, headings open
// sections and table rows are kept as pipe-joined lines.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read html: %w", err)
	}
	enc, name, certain := charset.DetermineEncoding(raw, "text/html")
	if name == "windows-1252" && !certain {
		enc, name = simplifiedchinese.GB18030, "gb18030"
	}
	doc, err := html.Parse(enc.NewDecoder().Reader(bytes.NewReader(raw)))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	tree := &doctree.DocTree{Title: baseTitle(filename)}
	if name != "" && name != "utf-8" {
		tree.SetMeta("encoding", name)
	}

	var (
		o      outline
		tables int
		visit  func(*html.Node)
	)
	paragraph := func(t string) {
		if isPolicyHeading(t) {
			o.Heading(t)
		} else {
			o.Text(t)
		}
	}
	visit = func(n *html.Node) {
		if n.Type != html.ElementNode {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				visit(c)
			}
			return
		}
		switch n.DataAtom {
		case atom.Title:
			if t := nodeText(n); t != "" {
				tree.Title = t
			}
		case atom.Script, atom.Style, atom.Noscript, atom.Nav, atom.Header, atom.Footer, atom.Aside, atom.Form:
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			o.Heading(nodeText(n))
		case atom.Table:
			if rows := tableRows(n); len(rows) > 0 {
				tables++
				o.Text(strings.Join(rows, "\n"))
			}
		case atom.P, atom.Li, atom.Blockquote, atom.Pre:
			paragraph(nodeText(n))
		default:
			if n.DataAtom != atom.Head && !hasBlockChild(n) {
				paragraph(nodeText(n))
				return
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				visit(c)
			}
		}
	}
	visit(doc)
	o.Finish(tree)
	if tables > 0 {
		tree.SetMeta("tables", tables)
	}
	return tree, nil
}

var blockAtoms = map[atom.Atom]bool{
	atom.Html: true, atom.Body: true, atom.Div: true, atom.Section: true, atom.Article: true,
	atom.Main: true, atom.P: true, atom.Ul: true, atom.Ol: true, atom.Li: true,
	atom.Table: true, atom.Blockquote: true, atom.Pre: true, atom.Center: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Nav: true, atom.Header: true, atom.Footer: true, atom.Aside: true, atom.Form: true,
}

// hasBlockChild reports whether n contains a block element anywhere below
// it. Elements without one are read as a single paragraph.
func hasBlockChild(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (blockAtoms[c.DataAtom] || hasBlockChild(c)) {
			return true
		}
	}
	return false
}

// nodeText joins the text under n with runs of whitespace collapsed.
func nodeText(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			buf.WriteString(n.Data)
		case n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style):
			return
		case n.Type == html.ElementNode && n.DataAtom == atom.Br:
			buf.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	lines := strings.Split(buf.String(), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// tableRows returns one " | "-joined line per non-empty row of a table.
// Nested tables are read as cell text.
func tableRows(table *html.Node) []string {
	var rows []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Tr {
			var cells []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
					cells = append(cells, strings.ReplaceAll(nodeText(c), "\n", " "))
				}
			}
			if line := strings.Join(cells, " | "); strings.Trim(line, " |") != "" {
				rows = append(rows, line)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(table)
	return rows
}

package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/mzhuang1/chanyeops-sub000/internal/doctree"
)

// TextParser reads plain text exports of policy documents. Blank lines
// separate paragraphs, and a line numbered like 第一章 or 一、 opens a section.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	data, enc, err := decodeChinese(raw)
	if err != nil {
		return nil, fmt.Errorf("decode text: %w", err)
	}

	tree := &doctree.DocTree{Title: baseTitle(filename)}
	if enc != "utf-8" {
		tree.SetMeta("encoding", enc)
	}

	var (
		o    outline
		para []string
	)
	endPara := func() {
		o.Text(strings.Join(para, "\n"))
		para = para[:0]
	}
	for _, line := range strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n") {
		line = strings.TrimRight(line, " \t\r　")
		switch {
		case strings.TrimSpace(line) == "":
			endPara()
		case isPolicyHeading(line):
			endPara()
			o.Heading(line)
		default:
			para = append(para, line)
		}
	}
	endPara()
	o.Finish(tree)
	return tree, nil
}

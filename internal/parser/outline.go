package parser

import (
	"bytes"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	"github.com/mzhuang1/chanyeops-sub000/internal/doctree"
)

// maxOutlineTitles caps the heading list recorded in metadata.
const maxOutlineTitles = 30

// outline collects a reference document as a flat run of headed sections in
// reading order. Heading depth is dropped; only the order of headings and
// body text reaches the reference excerpt.
type outline struct {
	nodes      []*doctree.DocNode
	heading    string
	body       []string
	titles     []string
	paragraphs int
}

// Heading starts a new section.
func (o *outline) Heading(title string) {
	title = strings.TrimSpace(title)
	if title == "" {
		return
	}
	o.flush()
	o.heading = title
	o.titles = append(o.titles, title)
}

// Text appends one body paragraph to the current section.
func (o *outline) Text(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	o.body = append(o.body, s)
	o.paragraphs++
}

func (o *outline) flush() {
	if o.heading == "" && len(o.body) == 0 {
		return
	}
	o.nodes = append(o.nodes, &doctree.DocNode{
		Title: o.heading,
		Text:  strings.Join(o.body, "\n\n"),
	})
	o.heading = ""
	o.body = nil
}

// Finish moves the sections into tree and records heading and paragraph
// counts plus the leading heading titles.
func (o *outline) Finish(tree *doctree.DocTree) {
	o.flush()
	tree.Children = o.nodes
	if n := len(o.titles); n > 0 {
		tree.SetMeta("headings", n)
		tree.SetMeta("outline", o.titles[:min(n, maxOutlineTitles)])
	}
	if o.paragraphs > 0 {
		tree.SetMeta("paragraphs", o.paragraphs)
	}
}

// policyHeadingRe matches the numbering Chinese government documents use for
// chapters and top-level items: 第一章, 第三节, 一、, （二）.
var policyHeadingRe = regexp.MustCompile(`^(第[一二三四五六七八九十百零〇\d]+[章节篇部分]|[一二三四五六七八九十]+、|[（(][一二三四五六七八九十]+[)）])`)

// maxPolicyHeadingRunes keeps numbered body sentences from being read as
// headings.
const maxPolicyHeadingRunes = 40

// isPolicyHeading reports whether a single line reads as a numbered heading.
func isPolicyHeading(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || strings.Contains(line, "\n") || utf8.RuneCountInString(line) > maxPolicyHeadingRunes {
		return false
	}
	if strings.HasSuffix(line, "。") || strings.HasSuffix(line, "；") {
		return false
	}
	return policyHeadingRe.MatchString(line)
}

// decodeChinese returns data as UTF-8. Input that is not valid UTF-8 is read
// as GB18030, which covers GBK and GB2312 exports. The second result names
// the source encoding.
func decodeChinese(data []byte) ([]byte, string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return data, "utf-8", nil
	}
	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), simplifiedchinese.GB18030.NewDecoder()))
	if err != nil {
		return nil, "", err
	}
	return out, "gb18030", nil
}

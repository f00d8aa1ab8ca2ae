package parser

import (
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/mzhuang1/chanyeops-sub000/internal/doctree"
)

// LegacyDocNote is attached to trees recovered by byte scraping.
const LegacyDocNote = "Word 97-2003 (.doc) 格式仅能部分提取文本，建议另存为 .docx 以获得更好的分析效果。"

// LegacyDocParser recovers readable runs from binary Word documents.
type LegacyDocParser struct{}

func (p *LegacyDocParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read doc: %w", err)
	}
	tree := &doctree.DocTree{Title: baseTitle(filename)}
	tree.AddNote(LegacyDocNote)
	if text := ScrapeText(data); text != "" {
		tree.Children = []*doctree.DocNode{{Text: text}}
	}
	return tree, nil
}

// minRun is the shortest run of readable characters kept by ScrapeText.
const minRun = 4

// ScrapeText pulls readable text out of an opaque binary. Valid UTF-8 input
// is scraped as-is; otherwise both UTF-16LE (the encoding binary Office
// formats store text in) and UTF-8 are tried and the longer result wins.
func ScrapeText(data []byte) string {
	if utf8.Valid(data) {
		return scrapeRuns([]rune(string(data)))
	}
	a := scrapeRuns(decodeUTF16LE(data))
	b := scrapeRuns(decodeUTF8(data))
	if utf8.RuneCountInString(a) >= utf8.RuneCountInString(b) {
		return a
	}
	return b
}

func decodeUTF16LE(data []byte) []rune {
	units := make([]uint16, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		units = append(units, uint16(data[i])|uint16(data[i+1])<<8)
	}
	return utf16.Decode(units)
}

func decodeUTF8(data []byte) []rune {
	out := make([]rune, 0, len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		out = append(out, r)
		data = data[size:]
	}
	return out
}

func readable(r rune) bool {
	if r == utf8.RuneError {
		return false
	}
	if unicode.Is(unicode.Han, r) || unicode.IsPunct(r) {
		return true
	}
	if r < 0x80 {
		return unicode.IsPrint(r)
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func scrapeRuns(rs []rune) string {
	var runs []string
	var cur []rune
	flush := func() {
		if len(cur) >= minRun {
			if s := strings.TrimSpace(string(cur)); s != "" {
				runs = append(runs, s)
			}
		}
		cur = cur[:0]
	}
	for _, r := range rs {
		if readable(r) {
			cur = append(cur, r)
			continue
		}
		flush()
	}
	flush()
	return strings.Join(runs, "\n")
}

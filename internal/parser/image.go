package parser

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"

	"github.com/mzhuang1/chanyeops-sub000/internal/doctree"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageParser records image metadata. No OCR is attempted; the text is a
// single placeholder line naming the file.
type ImageParser struct{}

func (p *ImageParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	name := filepath.Base(filename)
	tree := &doctree.DocTree{
		Title:    baseTitle(filename),
		Children: []*doctree.DocNode{{Text: "Image file: " + name}},
	}
	tree.SetMeta("size", len(data))

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		tree.AddNote(fmt.Sprintf("无法读取图片尺寸: %v", err))
		return tree, nil
	}
	tree.SetMeta("width", cfg.Width)
	tree.SetMeta("height", cfg.Height)
	tree.SetMeta("format", format)
	return tree, nil
}

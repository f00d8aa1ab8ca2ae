// Package extract turns reference files on disk into plain text plus
// format metadata. Unreadable substructure degrades to a note instead of
// failing the whole file.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mzhuang1/chanyeops-sub000/internal/doctree"
	"github.com/mzhuang1/chanyeops-sub000/internal/parser"
	"golang.org/x/sync/errgroup"
)

// Kind is the declared format of a reference file.
type Kind string

const (
	KindWord        Kind = "word"
	KindPDF         Kind = "pdf"
	KindSpreadsheet Kind = "spreadsheet"
	KindImage       Kind = "image"
	KindText        Kind = "text"
)

// PDFFallbackNote is the text recorded when no PDF text could be recovered.
const PDFFallbackNote = "PDF文件已上传，但文本内容提取受限。建议使用Word格式获得更好的分析效果。"

// ErrUnreadable marks a file that could not be opened at all.
var ErrUnreadable = errors.New("reference file unreadable")

// ExtractedFile is the text and metadata recovered from one reference file.
type ExtractedFile struct {
	FileName      string         `json:"file_name"`
	FilePath      string         `json:"file_path"`
	FileKind      Kind           `json:"file_kind"`
	FileSize      int64          `json:"file_size"`
	ExtractedText string         `json:"extracted_text"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Extractor reads reference files.
type Extractor struct {
	opts        parser.Options
	concurrency int
	log         *slog.Logger
}

func NewExtractor(opts parser.Options, concurrency int, log *slog.Logger) *Extractor {
	if concurrency <= 0 {
		concurrency = 1
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Extractor{opts: opts, concurrency: concurrency, log: log}
}

// KindFor infers a file kind from its extension. The second result is false
// for extensions no reader handles.
func KindFor(path string) (Kind, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx", ".doc":
		return KindWord, true
	case ".pdf":
		return KindPDF, true
	case ".xlsx", ".xls", ".csv":
		return KindSpreadsheet, true
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp", ".tif", ".tiff":
		return KindImage, true
	case ".txt", ".md", ".markdown", ".html", ".htm":
		return KindText, true
	}
	return "", false
}

// Extract reads one file. A declared kind overrides the extension. An error
// is returned only when the file cannot be opened; every other problem is
// reported through a note in ExtractedText.
func (e *Extractor) Extract(path string, declared Kind) (*ExtractedFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, filepath.Base(path), err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrUnreadable, filepath.Base(path))
	}

	kind := declared
	if kind == "" {
		k, ok := KindFor(path)
		if !ok {
			k = KindText
		}
		kind = k
	}

	out := &ExtractedFile{
		FileName: filepath.Base(path),
		FilePath: path,
		FileKind: kind,
		FileSize: info.Size(),
	}

	tree, err := e.parse(path, kind)
	if err != nil {
		e.log.Warn("extraction degraded", "file", out.FileName, "kind", kind, "error", err)
		out.ExtractedText = e.degrade(path, kind, err)
		out.Metadata = map[string]any{"degraded": true}
		return out, nil
	}

	text := tree.PlainText()
	if kind == KindPDF && strings.TrimSpace(text) == "" {
		tree.AddNote(PDFFallbackNote)
	}
	if len(tree.Notes) > 0 {
		notes := strings.Join(tree.Notes, "\n")
		if text == "" {
			text = notes
		} else {
			text += "\n\n" + notes
		}
	}
	out.ExtractedText = text
	out.Metadata = tree.Meta
	return out, nil
}

func (e *Extractor) parse(path string, kind Kind) (*doctree.DocTree, error) {
	p, err := e.parserFor(path, kind)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	tree, err := p.Parse(f, filepath.Base(path))
	if err != nil {
		return nil, err
	}
	return tree, nil
}

// parserFor picks a reader by extension, falling back to a kind default when
// the extension does not match the declared kind.
func (e *Extractor) parserFor(path string, kind Kind) (parser.Parser, error) {
	if k, ok := KindFor(path); ok && k == kind {
		return parser.ForFile(path, e.opts)
	}
	switch kind {
	case KindWord:
		return &parser.DOCXParser{}, nil
	case KindPDF:
		return &parser.PDFParser{FallbackPdftotext: e.opts.FallbackPdftotext}, nil
	case KindSpreadsheet:
		return &parser.XLSXParser{MaxRows: e.opts.MaxSheetRows}, nil
	case KindImage:
		return &parser.ImageParser{}, nil
	case KindText:
		return &parser.TextParser{}, nil
	}
	return nil, fmt.Errorf("unknown file kind %q", kind)
}

// degrade recovers what it can from a file whose reader failed.
func (e *Extractor) degrade(path string, kind Kind, cause error) string {
	if kind == KindPDF {
		return PDFFallbackNote
	}
	note := fmt.Sprintf("文件 %s 无法完整解析（%v），以下为可识别的部分内容。", filepath.Base(path), cause)
	data, err := os.ReadFile(path)
	if err != nil {
		return note
	}
	if text := parser.ScrapeText(data); text != "" {
		return note + "\n\n" + text
	}
	return note
}

// Skipped records a path that could not be read at all.
type Skipped struct {
	Path string
	Err  error
}

// ExtractAll reads every path concurrently and returns the readable files in
// input order. Unreadable paths are returned separately and never abort the
// batch; only context cancellation does.
func (e *Extractor) ExtractAll(ctx context.Context, paths []string) ([]*ExtractedFile, []Skipped, error) {
	results := make([]*ExtractedFile, len(paths))
	errs := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, err := e.Extract(path, "")
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	files := make([]*ExtractedFile, 0, len(paths))
	var skipped []Skipped
	for i, f := range results {
		if errs[i] != nil {
			e.log.Warn("reference file skipped", "path", paths[i], "error", errs[i])
			skipped = append(skipped, Skipped{Path: paths[i], Err: errs[i]})
			continue
		}
		files = append(files, f)
	}
	return files, skipped, nil
}

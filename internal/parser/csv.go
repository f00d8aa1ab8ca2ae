package parser

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/mzhuang1/chanyeops-sub000/internal/doctree"
)

// CSVParser handles CSV files as a single-sheet table.
type CSVParser struct {
	MaxRows int
}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	title := baseTitle(filename)
	tree := &doctree.DocTree{Title: title}
	tree.SetMeta("sheets", []SheetInfo{{Name: title, RowCount: len(records)}})
	tree.SetMeta("total_sheets", 1)

	if len(records) == 0 {
		return tree, nil
	}

	text, truncated := formatRows(records, p.MaxRows)
	if truncated {
		tree.AddNote(fmt.Sprintf("表格 %s 共 %d 行，仅提取前 %d 行", title, len(records), p.MaxRows))
	}
	tree.Children = append(tree.Children, &doctree.DocNode{
		Title: sheetHeading(title),
		Text:  text,
		Page:  1,
	})

	return tree, nil
}

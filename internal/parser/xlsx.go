package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/mzhuang1/chanyeops-sub000/internal/doctree"
	"github.com/xuri/excelize/v2"
)

// SheetInfo describes one worksheet of a spreadsheet.
type SheetInfo struct {
	Name     string `json:"name"`
	RowCount int    `json:"row_count"`
}

// XLSXParser handles Excel workbooks. Every sheet becomes one node whose text
// is the sheet rendered as CSV, capped at MaxRows rows.
type XLSXParser struct {
	MaxRows int
}

func (p *XLSXParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	tree := &doctree.DocTree{Title: baseTitle(filename)}

	sheets := wb.GetSheetList()
	infos := make([]SheetInfo, 0, len(sheets))
	for i, name := range sheets {
		rows, err := wb.GetRows(name)
		if err != nil {
			tree.AddNote(fmt.Sprintf("工作表 %s 读取失败: %v", name, err))
			infos = append(infos, SheetInfo{Name: name})
			continue
		}
		infos = append(infos, SheetInfo{Name: name, RowCount: len(rows)})

		text, truncated := formatRows(rows, p.MaxRows)
		if truncated {
			tree.AddNote(fmt.Sprintf("工作表 %s 共 %d 行，仅提取前 %d 行", name, len(rows), p.MaxRows))
		}
		tree.Children = append(tree.Children, &doctree.DocNode{
			Title: sheetHeading(name),
			Text:  text,
			Page:  i + 1,
		})
	}

	tree.SetMeta("sheets", infos)
	tree.SetMeta("total_sheets", len(sheets))
	return tree, nil
}

func sheetHeading(name string) string {
	return "=== Sheet: " + name + " ==="
}

// formatRows renders rows as CSV lines, keeping at most max rows when max > 0.
func formatRows(rows [][]string, max int) (string, bool) {
	truncated := false
	if max > 0 && len(rows) > max {
		rows = rows[:max]
		truncated = true
	}
	var buf strings.Builder
	w := csv.NewWriter(&buf)
	for _, row := range rows {
		_ = w.Write(row)
	}
	w.Flush()
	return strings.TrimRight(buf.String(), "\n"), truncated
}

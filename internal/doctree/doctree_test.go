package doctree

import "testing"

func TestPlainText_DocumentOrder(t *testing.T) {
	tree := &DocTree{
		Title: "doc",
		Children: []*DocNode{
			{Title: "第一章", Text: "导言", Children: []*DocNode{
				{Title: "1.1", Text: "细节"},
			}},
			{Text: "  尾注  "},
		},
	}
	want := "第一章\n\n导言\n\n1.1\n\n细节\n\n尾注"
	if got := tree.PlainText(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestPlainText_Empty(t *testing.T) {
	tree := &DocTree{Title: "empty"}
	if got := tree.PlainText(); got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
}

func TestSetMeta_AllocatesMap(t *testing.T) {
	tree := &DocTree{}
	tree.SetMeta("width", 10)
	if tree.Meta["width"] != 10 {
		t.Errorf("expected width 10, got %v", tree.Meta["width"])
	}
	tree.AddNote("partial")
	if len(tree.Notes) != 1 {
		t.Errorf("expected 1 note, got %d", len(tree.Notes))
	}
}

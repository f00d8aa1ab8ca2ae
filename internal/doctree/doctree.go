package doctree

import "strings"

// DocTree is the root of a parsed reference document.
type DocTree struct {
	Title    string         // Document title (from metadata or filename)
	Children []*DocNode     // Top-level sections
	Meta     map[string]any // Format-specific metadata (sheet names, image size)
	Notes    []string       // Degradation notes for partially readable input
}

// DocNode is a recursive section in the document tree.
type DocNode struct {
	Title    string     // Section heading (empty for leaf text)
	Text     string     // Text content of this node (may be empty for container nodes)
	Page     int        // Source page/sheet (0 if N/A)
	Children []*DocNode // Subsections
}

// PlainText flattens the tree into newline-separated text in document order.
// Headings are emitted on their own line ahead of their body.
func (t *DocTree) PlainText() string {
	var parts []string
	var walk func(nodes []*DocNode)
	walk = func(nodes []*DocNode) {
		for _, n := range nodes {
			if s := strings.TrimSpace(n.Title); s != "" {
				parts = append(parts, s)
			}
			if s := strings.TrimSpace(n.Text); s != "" {
				parts = append(parts, s)
			}
			walk(n.Children)
		}
	}
	walk(t.Children)
	return strings.Join(parts, "\n\n")
}

// AddNote records a degradation note.
func (t *DocTree) AddNote(note string) {
	t.Notes = append(t.Notes, note)
}

// SetMeta stores a metadata value, allocating the map on first use.
func (t *DocTree) SetMeta(key string, v any) {
	if t.Meta == nil {
		t.Meta = make(map[string]any)
	}
	t.Meta[key] = v
}

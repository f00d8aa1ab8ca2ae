// Package planning turns a generation request into a complete plan document:
// reference extraction, categorization, web augmentation, per-section
// generation and final assembly.
package planning

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a generation run.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusGenerating Status = "generating"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// GenerationRequest describes one plan to produce.
type GenerationRequest struct {
	Region             string   `json:"region"`
	PlanType           string   `json:"plan_type"`
	TemplateID         int      `json:"template_id"`
	ReferenceFilePaths []string `json:"reference_files,omitempty"`
	EnableWebSearch    bool     `json:"enable_web_search"`
	RequesterID        string   `json:"user_id,omitempty"`
}

// Validate checks the fields that do not need the template registry.
func (r GenerationRequest) Validate() error {
	if strings.TrimSpace(r.Region) == "" {
		return fmt.Errorf("%w: region is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.PlanType) == "" {
		return fmt.Errorf("%w: plan_type is required", ErrInvalidRequest)
	}
	return nil
}

// Title is the plan title derived from region and plan type.
func (r GenerationRequest) Title() string {
	return r.Region + r.PlanType + "发展规划"
}

// GeneratedSection is the output for one template section.
type GeneratedSection struct {
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	WordCount int      `json:"word_count"`
	Sources   []string `json:"sources"`
}

// Metadata summarizes a generated plan.
type Metadata struct {
	TotalWords  int       `json:"total_words"`
	GeneratedAt time.Time `json:"generated_at"`
	Sources     []string  `json:"sources"`
}

// GeneratedPlanning is the logical document both renderers consume.
type GeneratedPlanning struct {
	ID       string             `json:"id"`
	Title    string             `json:"title"`
	Content  string             `json:"content"`
	Sections []GeneratedSection `json:"sections"`
	Metadata Metadata           `json:"metadata"`
}

// Validate checks the structural invariants of an assembled plan.
func (p *GeneratedPlanning) Validate() error {
	if len(p.Sections) == 0 {
		return fmt.Errorf("%w: plan has no sections", ErrInvariant)
	}
	sum := 0
	for _, s := range p.Sections {
		sum += s.WordCount
	}
	if sum != p.Metadata.TotalWords {
		return fmt.Errorf("%w: total_words %d != section sum %d", ErrInvariant, p.Metadata.TotalWords, sum)
	}
	return nil
}

var (
	// ErrUnknownTemplate is returned before any work when the template id is
	// not registered.
	ErrUnknownTemplate = errors.New("unknown template")
	// ErrInvalidRequest marks a request missing a required field.
	ErrInvalidRequest = errors.New("invalid generation request")
	// ErrInvariant marks a malformed assembly result.
	ErrInvariant = errors.New("assembly invariant violated")
)

// SectionError wraps a generation failure for one section.
type SectionError struct {
	Index int
	Title string
	Err   error
}

func (e *SectionError) Error() string {
	return fmt.Sprintf("generate section %d %q: %v", e.Index+1, e.Title, e.Err)
}

func (e *SectionError) Unwrap() error { return e.Err }

// AssembleContent renders the plan as markdown: title, table of contents,
// then every section as a numbered heading followed by its content.
func AssembleContent(title string, sections []GeneratedSection) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	b.WriteString("## 目录\n\n")
	for i, s := range sections {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s.Title)
	}
	b.WriteString("\n---\n\n")
	for i, s := range sections {
		fmt.Fprintf(&b, "## %d. %s\n\n", i+1, s.Title)
		b.WriteString(s.Content)
		b.WriteString("\n\n---\n\n")
	}
	return b.String()
}

// Package templates holds the catalog of plan templates. A template is an
// ordered list of section contracts that drive generation.
package templates

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when a template id or code is not registered.
var ErrNotFound = errors.New("template not found")

// Section is one section contract inside a template.
type Section struct {
	Title          string   `json:"title" yaml:"title"`
	Subsections    []string `json:"subsections" yaml:"subsections"`
	AuthoringBrief string   `json:"requirements" yaml:"requirements"`
	MinWords       int      `json:"min_words" yaml:"min_words"`
}

// Validate checks the section contract.
func (s Section) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("section title is empty")
	}
	if len(s.Subsections) == 0 {
		return fmt.Errorf("section %q has no subsections", s.Title)
	}
	if s.MinWords <= 0 {
		return fmt.Errorf("section %q: min_words must be positive, got %d", s.Title, s.MinWords)
	}
	return nil
}

// Template is a named, ordered list of sections.
type Template struct {
	ID       int       `json:"id" yaml:"id"`
	Code     string    `json:"code" yaml:"code"`
	Name     string    `json:"name" yaml:"name"`
	Sections []Section `json:"sections" yaml:"sections"`
}

// Validate checks the template and all of its sections.
func (t Template) Validate() error {
	if t.ID <= 0 {
		return fmt.Errorf("template %q: id must be positive", t.Name)
	}
	if len(t.Sections) == 0 {
		return fmt.Errorf("template %d has no sections", t.ID)
	}
	for i, s := range t.Sections {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("template %d section %d: %w", t.ID, i+1, err)
		}
	}
	return nil
}

// Registry is a thread-safe template catalog.
type Registry struct {
	mu        sync.RWMutex
	templates map[int]Template
}

// NewRegistry creates a registry holding the given templates. Later entries
// replace earlier ones with the same id.
func NewRegistry(ts ...Template) (*Registry, error) {
	r := &Registry{templates: make(map[int]Template, len(ts))}
	for _, t := range ts {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register validates and stores a template.
func (r *Registry) Register(t Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[t.ID] = t
	return nil
}

// Get returns the template with the given id.
func (r *Registry) Get(id int) (Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[id]
	if !ok {
		return Template{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return t, nil
}

// GetByCode returns the template with the given code slug.
func (r *Registry) GetByCode(code string) (Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.templates {
		if t.Code != "" && strings.EqualFold(t.Code, code) {
			return t, nil
		}
	}
	return Template{}, fmt.Errorf("%w: code %q", ErrNotFound, code)
}

// List returns all templates ordered by id.
func (r *Registry) List() []Template {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Template, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type catalogFile struct {
	Templates []Template `yaml:"templates"`
}

// LoadFile reads a YAML catalog and registers every template in it.
func (r *Registry) LoadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read template catalog: %w", err)
	}
	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return 0, fmt.Errorf("decode template catalog: %w", err)
	}
	for _, t := range cf.Templates {
		if err := r.Register(t); err != nil {
			return 0, fmt.Errorf("template catalog %s: %w", path, err)
		}
	}
	return len(cf.Templates), nil
}

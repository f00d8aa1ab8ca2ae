package planning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mzhuang1/chanyeops-sub000/internal/extract"
	"github.com/mzhuang1/chanyeops-sub000/internal/sources"
	"github.com/mzhuang1/chanyeops-sub000/internal/templates"
	"github.com/mzhuang1/chanyeops-sub000/internal/websearch"
)

// TemplateSource resolves a template id.
type TemplateSource interface {
	Get(id int) (templates.Template, error)
}

// ReferenceExtractor reads a batch of reference files.
type ReferenceExtractor interface {
	ExtractAll(ctx context.Context, paths []string) ([]*extract.ExtractedFile, []extract.Skipped, error)
}

// WebAugmenter produces search context for a plan.
type WebAugmenter interface {
	Augment(ctx context.Context, region, planType string) websearch.Augmentation
}

// Assembler runs the full generation pipeline for one request.
type Assembler struct {
	Templates TemplateSource
	Extractor ReferenceExtractor
	Augmenter WebAugmenter // nil disables web search regardless of the request
	Sections  *SectionGenerator
	Log       *slog.Logger

	// SectionConcurrency > 1 drafts sections in parallel.
	SectionConcurrency int
	ExcerptRunes       int

	now func() time.Time
}

// Progress receives a completion percentage in [0, 100].
type Progress func(percent int)

const (
	progressReferences = 10
	progressSearch     = 20
	progressSections   = 95
)

// Run produces a plan. runID becomes the plan id; an empty runID gets a
// fresh one. Unknown templates fail before any other work. A section failure
// fails the run; unreadable reference files and failed searches do not.
func (a *Assembler) Run(ctx context.Context, runID string, req GenerationRequest, progress Progress) (*GeneratedPlanning, error) {
	if progress == nil {
		progress = func(int) {}
	}
	log := a.logger().With("region", req.Region, "plan_type", req.PlanType, "template_id", req.TemplateID)

	tmpl, err := a.Templates.Get(req.TemplateID)
	if err != nil {
		if errors.Is(err, templates.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrUnknownTemplate, req.TemplateID)
		}
		return nil, fmt.Errorf("resolve template: %w", err)
	}
	if len(tmpl.Sections) == 0 {
		return nil, fmt.Errorf("%w: template %d has no sections", ErrInvariant, tmpl.ID)
	}
	progress(0)

	var (
		referenceText string
		runSources    []string
	)
	if len(req.ReferenceFilePaths) > 0 && a.Extractor != nil {
		files, skipped, err := a.Extractor.ExtractAll(ctx, req.ReferenceFilePaths)
		if err != nil {
			return nil, fmt.Errorf("extract references: %w", err)
		}
		referenceText = sources.BuildReferenceText(sources.Categorize(files), a.ExcerptRunes)
		for _, f := range files {
			runSources = append(runSources, f.FileName)
		}
		log.Info("references extracted", "files", len(files), "skipped", len(skipped))
	}
	progress(progressReferences)

	var webText string
	if req.EnableWebSearch && a.Augmenter != nil {
		aug := a.Augmenter.Augment(ctx, req.Region, req.PlanType)
		webText = aug.Text
		runSources = append(runSources, aug.Sources...)
	}
	progress(progressSearch)

	sections, err := a.generateSections(ctx, log, tmpl, req, referenceText, webText, progress)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, s := range sections {
		total += s.WordCount
		runSources = append(runSources, s.Sources...)
	}
	if runID == "" {
		runID = uuid.NewString()
	}
	title := req.Title()
	plan := &GeneratedPlanning{
		ID:       runID,
		Title:    title,
		Content:  AssembleContent(title, sections),
		Sections: sections,
		Metadata: Metadata{
			TotalWords:  total,
			GeneratedAt: a.clock(),
			Sources:     dedupe(runSources),
		},
	}
	if len(plan.Sections) != len(tmpl.Sections) {
		return nil, fmt.Errorf("%w: %d sections for a %d-section template", ErrInvariant, len(plan.Sections), len(tmpl.Sections))
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	progress(100)
	log.Info("plan assembled", "sections", len(sections), "total_words", total, "sources", len(plan.Metadata.Sources))
	return plan, nil
}

func (a *Assembler) generateSections(ctx context.Context, log *slog.Logger, tmpl templates.Template, req GenerationRequest, referenceText, webText string, progress Progress) ([]GeneratedSection, error) {
	n := len(tmpl.Sections)
	out := make([]GeneratedSection, n)
	step := func(done int) int {
		return progressSearch + (progressSections-progressSearch)*done/n
	}

	draft := func(ctx context.Context, i int) error {
		sec := tmpl.Sections[i]
		start := time.Now()
		s, err := a.Sections.Generate(ctx, sec, req.Region, req.PlanType, referenceText, webText)
		if err != nil {
			log.Error("section generation failed", "section", i+1, "title", sec.Title, "error", err)
			return &SectionError{Index: i, Title: sec.Title, Err: err}
		}
		log.Info("section generated", "section", i+1, "title", sec.Title, "words", s.WordCount, "elapsed", time.Since(start))
		out[i] = s
		return nil
	}

	if a.SectionConcurrency <= 1 {
		for i := range n {
			if err := draft(ctx, i); err != nil {
				return nil, err
			}
			progress(step(i + 1))
		}
		return out, nil
	}

	var done atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.SectionConcurrency)
	for i := range n {
		g.Go(func() error {
			if err := draft(gctx, i); err != nil {
				return err
			}
			progress(step(int(done.Add(1))))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *Assembler) logger() *slog.Logger {
	if a.Log == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.Log
}

func (a *Assembler) clock() time.Time {
	if a.now != nil {
		return a.now()
	}
	return time.Now().UTC()
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

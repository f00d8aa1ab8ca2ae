package pipeline

import (
	"sync"
	"time"

	"github.com/mzhuang1/chanyeops-sub000/internal/planning"
)

// Run tracks the state of one plan generation.
type Run struct {
	mu sync.Mutex

	ID      string
	UserID  string
	Request planning.GenerationRequest

	Status   planning.Status
	Phase    string
	Progress int

	plan         *planning.GeneratedPlanning
	errorMessage string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRun returns a draft run for req.
func NewRun(id string, req planning.GenerationRequest) *Run {
	now := time.Now().UTC()
	return &Run{
		ID:        id,
		UserID:    req.RequesterID,
		Request:   req,
		Status:    planning.StatusDraft,
		Phase:     "draft",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetStatus updates run status atomically.
func (r *Run) SetStatus(status planning.Status, phase string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = status
	r.Phase = phase
	r.UpdatedAt = time.Now().UTC()
}

// SetProgress records a completion percentage and reports whether it
// changed. Progress never moves backwards.
func (r *Run) SetProgress(p int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p = min(max(p, 0), 100)
	if p <= r.Progress {
		return false
	}
	r.Progress = p
	r.UpdatedAt = time.Now().UTC()
	return true
}

// Complete stores the plan and marks the run completed.
func (r *Run) Complete(plan *planning.GeneratedPlanning) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plan = plan
	r.Status = planning.StatusCompleted
	r.Phase = "completed"
	r.Progress = 100
	r.UpdatedAt = time.Now().UTC()
}

// Fail marks the run failed with a readable message. No partial plan is kept.
func (r *Run) Fail(phase, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plan = nil
	r.errorMessage = message
	r.Status = planning.StatusFailed
	r.Phase = phase
	r.UpdatedAt = time.Now().UTC()
}

// RunSnapshot is a read-only, JSON-safe copy of run state.
type RunSnapshot struct {
	ID               string                      `json:"id"`
	UserID           string                      `json:"user_id,omitempty"`
	Region           string                      `json:"region"`
	PlanType         string                      `json:"plan_type"`
	TemplateID       int                         `json:"template_id"`
	Status           planning.Status             `json:"status"`
	Phase            string                      `json:"phase"`
	Progress         int                         `json:"progress"`
	Title            string                      `json:"title,omitempty"`
	GeneratedContent string                      `json:"generated_content,omitempty"`
	Sections         []planning.GeneratedSection `json:"sections"`
	Metadata         *planning.Metadata          `json:"metadata,omitempty"`
	ErrorMessage     string                      `json:"error_message,omitempty"`
	CreatedAt        time.Time                   `json:"created_at"`
	UpdatedAt        time.Time                   `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the run state.
func (r *Run) Snapshot() RunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := RunSnapshot{
		ID:           r.ID,
		UserID:       r.UserID,
		Region:       r.Request.Region,
		PlanType:     r.Request.PlanType,
		TemplateID:   r.Request.TemplateID,
		Status:       r.Status,
		Phase:        r.Phase,
		Progress:     r.Progress,
		Title:        r.Request.Title(),
		Sections:     []planning.GeneratedSection{},
		ErrorMessage: r.errorMessage,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.plan != nil {
		s.Title = r.plan.Title
		s.GeneratedContent = r.plan.Content
		s.Sections = append(s.Sections, r.plan.Sections...)
		md := r.plan.Metadata
		s.Metadata = &md
	}
	return s
}

// Plan rebuilds the generated plan from a completed snapshot.
func (s RunSnapshot) Plan() (*planning.GeneratedPlanning, error) {
	if s.Status != planning.StatusCompleted || s.Metadata == nil {
		return nil, ErrNotCompleted
	}
	return &planning.GeneratedPlanning{
		ID:       s.ID,
		Title:    s.Title,
		Content:  s.GeneratedContent,
		Sections: s.Sections,
		Metadata: *s.Metadata,
	}, nil
}

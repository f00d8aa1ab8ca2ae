package pipeline

import (
	"testing"
	"time"

	"github.com/mzhuang1/chanyeops-sub000/internal/planning"
)

func testRequest() planning.GenerationRequest {
	return planning.GenerationRequest{
		Region:      "景德镇",
		PlanType:    "十四五",
		TemplateID:  1,
		RequesterID: "u1",
	}
}

func TestRun_StateTransitions(t *testing.T) {
	run := NewRun("test-1", testRequest())
	if run.Status != planning.StatusDraft {
		t.Fatalf("expected draft, got %q", run.Status)
	}
	if run.UserID != "u1" {
		t.Errorf("expected owner u1, got %q", run.UserID)
	}

	before := run.UpdatedAt
	time.Sleep(time.Millisecond)
	run.SetStatus(planning.StatusGenerating, "generating")
	if run.Status != planning.StatusGenerating {
		t.Errorf("expected generating, got %q", run.Status)
	}
	if !run.UpdatedAt.After(before) {
		t.Error("expected UpdatedAt to advance after SetStatus")
	}

	plan := &planning.GeneratedPlanning{
		ID:       "test-1",
		Title:    "景德镇十四五发展规划",
		Content:  "# 景德镇十四五发展规划",
		Sections: []planning.GeneratedSection{{Title: "总则", Content: "内容", WordCount: 2, Sources: []string{}}},
		Metadata: planning.Metadata{TotalWords: 2},
	}
	run.Complete(plan)

	snap := run.Snapshot()
	if snap.Status != planning.StatusCompleted || snap.Progress != 100 {
		t.Errorf("expected completed at 100, got %q at %d", snap.Status, snap.Progress)
	}
	if snap.GeneratedContent != plan.Content {
		t.Errorf("expected content %q, got %q", plan.Content, snap.GeneratedContent)
	}
	if snap.Metadata == nil || snap.Metadata.TotalWords != 2 {
		t.Errorf("expected metadata with 2 words, got %+v", snap.Metadata)
	}
}

func TestRun_FailDropsPlan(t *testing.T) {
	run := NewRun("fail-1", testRequest())
	run.Complete(&planning.GeneratedPlanning{Title: "x"})
	run.Fail("generating", "章节生成失败")

	snap := run.Snapshot()
	if snap.Status != planning.StatusFailed {
		t.Errorf("expected failed, got %q", snap.Status)
	}
	if snap.ErrorMessage != "章节生成失败" {
		t.Errorf("expected error message, got %q", snap.ErrorMessage)
	}
	if snap.GeneratedContent != "" || snap.Metadata != nil {
		t.Error("failed run must not expose a plan")
	}
	if _, err := snap.Plan(); err != ErrNotCompleted {
		t.Errorf("expected ErrNotCompleted, got %v", err)
	}
}

func TestRun_ProgressIsMonotonic(t *testing.T) {
	run := NewRun("p-1", testRequest())
	steps := []struct {
		in      int
		want    int
		changed bool
	}{
		{10, 10, true},
		{5, 10, false},
		{10, 10, false},
		{150, 100, true},
		{-3, 100, false},
	}
	for _, s := range steps {
		if got := run.SetProgress(s.in); got != s.changed {
			t.Errorf("SetProgress(%d) changed=%v, want %v", s.in, got, s.changed)
		}
		if run.Progress != s.want {
			t.Errorf("after SetProgress(%d) expected %d, got %d", s.in, s.want, run.Progress)
		}
	}
}

func TestRun_SnapshotSectionsNotNil(t *testing.T) {
	snap := NewRun("snap-1", testRequest()).Snapshot()
	if snap.Sections == nil {
		t.Error("expected non-nil sections slice in snapshot")
	}
	if snap.Title != "景德镇十四五发展规划" {
		t.Errorf("expected derived title, got %q", snap.Title)
	}
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mzhuang1/chanyeops-sub000/internal/llm"
	"github.com/mzhuang1/chanyeops-sub000/internal/planning"
)

// Worker runs a single plan generation.
type Worker struct {
	assembler *planning.Assembler
	store     RunStore
	log       *slog.Logger
}

func NewWorker(assembler *planning.Assembler, store RunStore, log *slog.Logger) *Worker {
	return &Worker{assembler: assembler, store: store, log: log}
}

// Process drives a run from draft to completed or failed. Every state change
// is persisted.
func (w *Worker) Process(ctx context.Context, run *Run) {
	log := w.log.With("run_id", run.ID, "user_id", run.UserID)

	// Progress callbacks may fire from several section goroutines; snapshot
	// and save as one step so an older snapshot never lands last.
	var saveMu sync.Mutex
	save := func(ctx context.Context) {
		saveMu.Lock()
		defer saveMu.Unlock()
		if err := w.store.Save(ctx, run.Snapshot()); err != nil {
			log.Warn("persist run failed", "error", err)
		}
	}

	run.SetStatus(planning.StatusGenerating, "generating")
	save(ctx)

	plan, err := w.assembler.Run(ctx, run.ID, run.Request, func(p int) {
		if run.SetProgress(p) {
			save(ctx)
		}
	})
	if err != nil {
		log.Error("plan generation failed", "error", err)
		run.Fail("generating", failureMessage(err))
		// The failure must be recorded even when ctx is already cancelled.
		save(context.WithoutCancel(ctx))
		return
	}

	run.Complete(plan)
	save(ctx)
	log.Info("plan generation complete", "title", plan.Title, "sections", len(plan.Sections), "total_words", plan.Metadata.TotalWords)
}

// failureMessage turns a pipeline error into the message shown to callers.
func failureMessage(err error) string {
	var secErr *planning.SectionError
	var apiErr *llm.APIError
	switch {
	case errors.Is(err, planning.ErrUnknownTemplate):
		return err.Error()
	case errors.As(err, &secErr) && errors.As(err, &apiErr):
		return fmt.Sprintf("章节“%s”生成失败（%s）：%s", secErr.Title, apiErr.Kind, apiErr.Message)
	case errors.As(err, &secErr):
		return fmt.Sprintf("章节“%s”生成失败：%v", secErr.Title, secErr.Err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "生成已中断：" + err.Error()
	default:
		return err.Error()
	}
}

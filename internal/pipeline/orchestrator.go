package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mzhuang1/chanyeops-sub000/internal/planning"
	"github.com/mzhuang1/chanyeops-sub000/internal/render"
	"github.com/mzhuang1/chanyeops-sub000/internal/templates"
)

var (
	// ErrQueueFull is returned by Submit when no worker slot is available.
	ErrQueueFull = errors.New("run queue is full")
	// ErrStopped is returned by Submit once Stop has been called.
	ErrStopped = errors.New("run queue is stopped")
)

// Options sizes the worker pool.
type Options struct {
	WorkerCount  int
	MaxQueueSize int
	RunTTL       time.Duration
}

// Orchestrator queues plan generations and serves their results.
type Orchestrator struct {
	store     RunStore
	queue     chan *Run
	assembler *planning.Assembler
	printer   render.Printer
	log       *slog.Logger
	opts      Options

	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu guards stopped and the queue close against concurrent sends.
	mu      sync.RWMutex
	stopped bool
}

// NewOrchestrator creates the pipeline. Call Start to launch workers.
func NewOrchestrator(opts Options, store RunStore, assembler *planning.Assembler, printer render.Printer, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		store:     store,
		queue:     make(chan *Run, opts.MaxQueueSize),
		assembler: assembler,
		printer:   printer,
		log:       log,
		opts:      opts,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.opts.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.assembler, o.store, o.log)
			for {
				select {
				case <-workerCtx.Done():
					return
				case run, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, run)
				}
			}
		}()
	}

	// Start run store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.cleanup(workerCtx)
			}
		}
	}()
}

func (o *Orchestrator) cleanup(ctx context.Context) {
	n, err := o.store.Cleanup(ctx, time.Now().Add(-o.opts.RunTTL))
	if err != nil {
		o.log.Warn("run cleanup failed", "error", err)
		return
	}
	if n > 0 {
		o.log.Info("expired runs removed", "count", n)
	}
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Submit validates req and queues a new run. Unknown templates are rejected
// here so no run is created for them.
func (o *Orchestrator) Submit(ctx context.Context, req planning.GenerationRequest) (RunSnapshot, error) {
	if err := req.Validate(); err != nil {
		return RunSnapshot{}, err
	}
	if _, err := o.assembler.Templates.Get(req.TemplateID); err != nil {
		if errors.Is(err, templates.ErrNotFound) {
			return RunSnapshot{}, fmt.Errorf("%w: %d", planning.ErrUnknownTemplate, req.TemplateID)
		}
		return RunSnapshot{}, err
	}

	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.stopped {
		return RunSnapshot{}, ErrStopped
	}

	run := NewRun(uuid.NewString(), req)
	if err := o.store.Save(ctx, run.Snapshot()); err != nil {
		return RunSnapshot{}, fmt.Errorf("save run: %w", err)
	}
	select {
	case o.queue <- run:
		o.log.Info("run queued", "run_id", run.ID, "template_id", req.TemplateID, "queue_depth", len(o.queue))
		return run.Snapshot(), nil
	default:
		run.Fail("queue_full", ErrQueueFull.Error())
		if err := o.store.Save(ctx, run.Snapshot()); err != nil {
			o.log.Warn("persist run failed", "run_id", run.ID, "error", err)
		}
		return run.Snapshot(), fmt.Errorf("%w (%d)", ErrQueueFull, o.opts.MaxQueueSize)
	}
}

// GetRun returns a run snapshot. A non-empty userID must own the run.
func (o *Orchestrator) GetRun(ctx context.Context, id, userID string) (RunSnapshot, error) {
	snap, err := o.store.Get(ctx, id)
	if err != nil {
		return RunSnapshot{}, err
	}
	if userID != "" && snap.UserID != userID {
		return RunSnapshot{}, ErrRunNotFound
	}
	return snap, nil
}

// ListRuns returns runs newest first, filtered by owner when userID is set.
func (o *Orchestrator) ListRuns(ctx context.Context, userID string) ([]RunSnapshot, error) {
	return o.store.List(ctx, userID)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

package pipeline

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	ErrRunNotFound  = errors.New("run not found")
	ErrNotCompleted = errors.New("run is not completed")
)

// RunStore persists run snapshots keyed by run id.
type RunStore interface {
	Save(ctx context.Context, s RunSnapshot) error
	Get(ctx context.Context, id string) (RunSnapshot, error)
	// List returns runs newest first; an empty userID lists every run.
	List(ctx context.Context, userID string) ([]RunSnapshot, error)
	// Cleanup removes finished runs last updated before cutoff.
	Cleanup(ctx context.Context, cutoff time.Time) (int, error)
	Close() error
}

// MemoryStore is a thread-safe in-memory RunStore.
type MemoryStore struct {
	mu   sync.Mutex
	runs map[string]RunSnapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]RunSnapshot)}
}

func (s *MemoryStore) Save(_ context.Context, snap RunSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[snap.ID] = snap
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (RunSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.runs[id]
	if !ok {
		return RunSnapshot{}, ErrRunNotFound
	}
	return snap, nil
}

func (s *MemoryStore) List(_ context.Context, userID string) ([]RunSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RunSnapshot, 0, len(s.runs))
	for _, snap := range s.runs {
		if userID == "" || snap.UserID == userID {
			out = append(out, snap)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Cleanup(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, snap := range s.runs {
		if snap.Status.Terminal() && snap.UpdatedAt.Before(cutoff) {
			delete(s.runs, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Close() error { return nil }

package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Source loads a complete snapshot from backing storage.
type Source interface {
	Load(ctx context.Context) (*Snapshot, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (*Snapshot, error)

// Load calls f.
func (f SourceFunc) Load(ctx context.Context) (*Snapshot, error) { return f(ctx) }

// Store publishes snapshots copy-on-write. Readers load the current
// pointer without locking; writers are serialised and swap in a new
// snapshot only after validation succeeds.
type Store struct {
	current atomic.Pointer[Snapshot]
	mu      sync.Mutex
	source  Source
	reloads singleflight.Group
	logger  *slog.Logger
	now     func() time.Time
}

// NewStore loads the initial snapshot from source.
func NewStore(ctx context.Context, source Source, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{source: source, logger: logger, now: func() time.Time { return time.Now().UTC() }}
	snap, err := source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("rbac: initial load: %w", err)
	}
	s.publish(snap.clone())
	return s, nil
}

// Snapshot returns the snapshot current at call time.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Reload replaces the snapshot with a fresh load from the source.
// Concurrent callers share one load, which runs detached from the
// caller that started it; a cancelled caller stops waiting but the load
// still completes for the others.
func (s *Store) Reload(ctx context.Context) error {
	loadCtx := context.WithoutCancel(ctx)
	resultChan := s.reloads.DoChan("reload", func() (interface{}, error) {
		snap, err := s.source.Load(loadCtx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		next := snap.clone()
		next.version = s.current.Load().Version() + 1
		s.current.Store(next)
		s.logIntegrity(next)
		return next.version, nil
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return fmt.Errorf("rbac: reload: %w", res.Err)
		}
		s.logger.Info("rbac snapshot reloaded", slog.Any("version", res.Val), slog.Bool("shared", res.Shared))
		return nil
	}
}

func (s *Store) publish(snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap.version = 1
	s.current.Store(snap)
	s.logIntegrity(snap)
}

func (s *Store) logIntegrity(snap *Snapshot) {
	for _, f := range CheckIntegrity(snap) {
		s.logger.Warn("rbac integrity", slog.String("kind", string(f.Kind)), slog.String("role", f.RoleID), slog.String("ref", f.Ref))
	}
}

// update applies fn to a private copy and publishes it if fn succeeds.
func (s *Store) update(op string, fn func(next *Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.current.Load()
	next := prev.clone()
	if err := fn(next); err != nil {
		s.logger.Debug("rbac mutation rejected", slog.String("op", op), slog.Any("error", err))
		return err
	}
	next.version = prev.version + 1
	s.current.Store(next)
	s.logger.Info("rbac mutation applied", slog.String("op", op), slog.Uint64("version", next.version))
	return nil
}

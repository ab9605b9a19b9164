package rbac

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func catalogOf(ids ...string) []Permission {
	perms := make([]Permission, 0, len(ids))
	for _, id := range ids {
		perms = append(perms, Permission{ID: id})
	}
	return perms
}

func mustSnapshot(t *testing.T, perms []Permission, roles []Role, depts ...Department) *Snapshot {
	t.Helper()
	snap, err := NewSnapshot(perms, roles, depts)
	require.NoError(t, err)
	return snap
}

func newTestStore(t *testing.T, snap *Snapshot) *Store {
	t.Helper()
	store, err := NewStore(context.Background(), SourceFunc(func(context.Context) (*Snapshot, error) {
		return snap, nil
	}), testLogger())
	require.NoError(t, err)
	return store
}

func newSeedStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(context.Background(), SeedSource(), testLogger())
	require.NoError(t, err)
	return store
}

// staticReader serves one fixed snapshot to a Binder.
type staticReader struct{ snap *Snapshot }

func (s staticReader) Snapshot() *Snapshot { return s.snap }

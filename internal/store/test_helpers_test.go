package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/kinetic/internal/model"
	"github.com/roach88/kinetic/internal/trace"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// beginTestRun starts a run for scenario "test".
func beginTestRun(t *testing.T, s *Store) string {
	t.Helper()
	id, err := s.BeginRun(context.Background(), RunSpec{Scenario: "test", Seed: 1, MaxSteps: 10})
	require.NoError(t, err)
	return id
}

// testRecords returns n records of reaction "tick" at times 1..n.
func testRecords(n int) []trace.Record {
	out := make([]trace.Record, n)
	for i := range out {
		out[i] = trace.Record{
			Step:     int64(i + 1),
			Time:     model.Time(float64(i + 1)),
			Reaction: "tick",
			Node:     1,
		}
	}
	return out
}

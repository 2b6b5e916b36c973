package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/kinetic/internal/model"
	"github.com/roach88/kinetic/internal/trace"
)

// Run is a stored run row.
type Run struct {
	Seq       int64   `db:"seq" json:"seq"`
	ID        string  `db:"id" json:"id"`
	Scenario  string  `db:"scenario" json:"scenario"`
	Seed      int64   `db:"seed" json:"seed"`
	MaxSteps  int64   `db:"max_steps" json:"max_steps"`
	EndTime   float64 `db:"end_time" json:"end_time"`
	State     string  `db:"state" json:"state"`
	Reason    string  `db:"reason" json:"reason"`
	Steps     int64   `db:"steps" json:"steps"`
	FinalTime float64 `db:"final_time" json:"final_time"`
	Error     string  `db:"error" json:"error,omitempty"`
	Digest    string  `db:"digest" json:"digest"`
}

type stepRow struct {
	Step       int64   `db:"step"`
	Time       float64 `db:"time"`
	ReactionID string  `db:"reaction_id"`
	NodeID     int64   `db:"node_id"`
}

func (r stepRow) record() trace.Record {
	return trace.Record{
		Step:     r.Step,
		Time:     model.Time(r.Time),
		Reaction: model.ReactionID(r.ReactionID),
		Node:     model.NodeID(r.NodeID),
	}
}

const runColumns = `seq, id, scenario, seed, max_steps, end_time, state, reason, steps, final_time, error, digest`

// ReadRun returns one run by ID.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	var run Run
	err := s.db.GetContext(ctx, &run, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns every run in insertion order.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	runs := []Run{}
	if err := s.db.SelectContext(ctx, &runs, `SELECT `+runColumns+` FROM runs ORDER BY seq ASC`); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// LatestRun returns the most recent run of a scenario.
func (s *Store) LatestRun(ctx context.Context, scenario string) (Run, error) {
	var run Run
	err := s.db.GetContext(ctx, &run, `
		SELECT `+runColumns+` FROM runs
		WHERE scenario = ?
		ORDER BY seq DESC
		LIMIT 1
	`, scenario)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("latest run of %q: %w", scenario, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("latest run of %q: %w", scenario, err)
	}
	return run, nil
}

// ReadSteps returns the records of a run ordered by step.
// Returns an empty slice (not nil) if the run has no steps.
func (s *Store) ReadSteps(ctx context.Context, runID string) ([]trace.Record, error) {
	return s.selectSteps(ctx, `
		SELECT step, time, reaction_id, node_id FROM steps
		WHERE run_id = ?
		ORDER BY step ASC
	`, runID)
}

// ReadReactionSteps returns the records of one reaction in a run.
func (s *Store) ReadReactionSteps(ctx context.Context, runID string, reaction model.ReactionID) ([]trace.Record, error) {
	return s.selectSteps(ctx, `
		SELECT step, time, reaction_id, node_id FROM steps
		WHERE run_id = ? AND reaction_id = ?
		ORDER BY step ASC
	`, runID, string(reaction))
}

func (s *Store) selectSteps(ctx context.Context, query string, args ...any) ([]trace.Record, error) {
	var rows []stepRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("read steps: %w", err)
	}
	out := make([]trace.Record, len(rows))
	for i, r := range rows {
		out[i] = r.record()
	}
	return out, nil
}

package store

import (
	"context"
	"fmt"

	"github.com/roach88/kinetic/internal/engine"
	"github.com/roach88/kinetic/internal/model"
	"github.com/roach88/kinetic/internal/trace"
)

// RunSpec describes a run at the moment it starts.
type RunSpec struct {
	Scenario string
	Seed     int64
	MaxSteps int64
	EndTime  model.Time
}

// Outcome describes how a run ended.
type Outcome struct {
	State     string
	Reason    string
	Steps     int64
	FinalTime model.Time
	Error     string
	Digest    string
}

// NewOutcome describes a terminated engine status and its trace digest.
func NewOutcome(st engine.Status, digest string) Outcome {
	o := Outcome{
		State:     st.State.String(),
		Reason:    string(st.Reason),
		Steps:     st.Step,
		FinalTime: st.Time,
		Digest:    digest,
	}
	if st.Err != nil {
		o.Error = st.Err.Error()
	}
	return o
}

// BeginRun inserts a run in state "running" and returns its new ID.
func (s *Store) BeginRun(ctx context.Context, spec RunSpec) (string, error) {
	id := s.ids.Generate()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, scenario, seed, max_steps, end_time, state)
		VALUES (?, ?, ?, ?, ?, 'running')
	`, id, spec.Scenario, spec.Seed, spec.MaxSteps, spec.EndTime.Float64())
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// WriteSteps appends records to a run in a single transaction.
// Uses ON CONFLICT DO NOTHING for idempotency - rewriting a step that is
// already stored is silently ignored.
func (s *Store) WriteSteps(ctx context.Context, runID string, records []trace.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write steps: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO steps (run_id, step, time, reaction_id, node_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, step) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write steps: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, runID, r.Step, r.Time.Float64(), string(r.Reaction), int64(r.Node)); err != nil {
			return fmt.Errorf("write step %d: %w", r.Step, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write steps: commit: %w", err)
	}
	return nil
}

// FinishRun records the outcome of a run.
func (s *Store) FinishRun(ctx context.Context, runID string, o Outcome) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET state = ?, reason = ?, steps = ?, final_time = ?, error = ?, digest = ?
		WHERE id = ?
	`, o.State, o.Reason, o.Steps, o.FinalTime.Float64(), o.Error, o.Digest, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// Package trace records the sequence of executed steps and derives a
// content digest from it.
//
// Two runs are equivalent when their traces are equal: same reactions, on
// the same nodes, at the same times, in the same order. The digest is a
// SHA-256 over the canonical JSON of the trace with a domain prefix, so it
// can be stored and compared without keeping the full trace.
package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync"

	"github.com/roach88/kinetic/internal/model"
	"github.com/roach88/kinetic/internal/observer"
)

// DomainTrace is the digest domain prefix.
// The version suffix enables future format migration.
const DomainTrace = "kinetic/trace/v1"

// Record is one executed step.
type Record struct {
	Step     int64            `json:"step"`
	Time     model.Time       `json:"time"`
	Reaction model.ReactionID `json:"reaction"`
	Node     model.NodeID     `json:"node"`
}

// canonical returns the record as a canonical JSON object. Time is
// formatted with the shortest representation that round-trips.
func (r Record) canonical() map[string]any {
	return map[string]any{
		"step":     r.Step,
		"time":     FormatTime(r.Time),
		"reaction": string(r.Reaction),
		"node":     int64(r.Node),
	}
}

// FormatTime renders a time for canonical JSON, which forbids floats.
func FormatTime(t model.Time) string {
	return strconv.FormatFloat(t.Float64(), 'g', -1, 64)
}

// Values returns records as canonical JSON values, for embedding a trace in
// a larger canonical document.
func Values(records []Record) []any {
	arr := make([]any, len(records))
	for i, r := range records {
		arr[i] = r.canonical()
	}
	return arr
}

// Canonical returns the canonical JSON array of records.
func Canonical(records []Record) ([]byte, error) {
	b, err := MarshalCanonical(Values(records))
	if err != nil {
		return nil, fmt.Errorf("canonical trace: %w", err)
	}
	return b, nil
}

// Digest returns the hex SHA-256 of the canonical trace.
func Digest(records []Record) (string, error) {
	b, err := Canonical(records)
	if err != nil {
		return "", err
	}
	return hashWithDomain(DomainTrace, b), nil
}

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Diff returns the index of the first record where a and b differ, or -1
// when they are equal. A length mismatch differs at the shorter length.
func Diff(a, b []Record) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	if len(a) != len(b) {
		return n
	}
	return -1
}

// Recorder is an observer.Sink collecting step records.
// Safe for use from an Async consumer while another goroutine reads.
type Recorder struct {
	mu       sync.Mutex
	records  []Record
	finished bool
	final    model.Time
	steps    int64
}

var _ observer.Sink = (*Recorder)(nil)

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Handle implements observer.Sink.
func (r *Recorder) Handle(ev observer.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Kind {
	case observer.EventStep:
		r.records = append(r.records, Record{Step: ev.Step, Time: ev.Time, Reaction: ev.Reaction, Node: ev.Node})
	case observer.EventFinished:
		r.finished = true
		r.final = ev.Time
		r.steps = ev.Step
	}
}

// Records returns a copy of the records so far.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Record(nil), r.records...)
}

// Len returns the number of records.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Finished reports whether EventFinished was seen, with its time and step.
func (r *Recorder) Finished() (t model.Time, steps int64, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.final, r.steps, r.finished
}

// Digest returns the digest of the records so far.
func (r *Recorder) Digest() (string, error) {
	return Digest(r.Records())
}

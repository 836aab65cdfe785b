// Package metrics wires a tally.Scope around the evaluator and KV layers,
// grounded on nakama's server/metrics.go (a Metrics struct wrapping a
// tally root scope plus a handful of go.uber.org/atomic counters for
// values sampled off the hot path). This module doesn't stand up nakama's
// Prometheus HTTP reporter — no SPEC_FULL component needs one — so a
// caller supplies whatever tally.Scope fits its deployment (a
// tally.NoopScope in the common case, tally.NewTestScope in tests).
package metrics

import (
	"time"

	"github.com/uber-go/tally/v4"
	"go.uber.org/atomic"
)

// Metrics records the counters and timers SPEC_FULL.md §3 names:
// tic.eval.count, tic.eval.errors, tic.snapshot.count, tic.kv.op.duration.
type Metrics struct {
	scope tally.Scope

	// EvalCount/EvalErrors mirror the scope's counters locally so a host
	// can read current totals without round-tripping through the
	// reporter, the same role nakama's atomic.Int64 fields play alongside
	// its prometheusScope (see server/metrics.go's currentReqCount).
	EvalCount  *atomic.Int64
	EvalErrors *atomic.Int64
}

// New wraps scope. A nil scope is treated as tally.NoopScope.
func New(scope tally.Scope) *Metrics {
	if scope == nil {
		scope = tally.NoopScope
	}
	return &Metrics{
		scope:      scope,
		EvalCount:  atomic.NewInt64(0),
		EvalErrors: atomic.NewInt64(0),
	}
}

// RecordEval increments tic.eval.count and, on a non-nil err, tic.eval.errors.
func (m *Metrics) RecordEval(err error) {
	m.EvalCount.Inc()
	m.scope.Counter("tic.eval.count").Inc(1)
	if err != nil {
		m.EvalErrors.Inc()
		m.scope.Counter("tic.eval.errors").Inc(1)
	}
}

// RecordSnapshot increments tic.snapshot.count, called once per
// Versioned.Snapshot that produces a new commit.
func (m *Metrics) RecordSnapshot() {
	m.scope.Counter("tic.snapshot.count").Inc(1)
}

// RecordKVOp reports a KV backend operation's duration under
// tic.kv.op.duration, tagged by op ("get", "set", "get_many", "set_many").
func (m *Metrics) RecordKVOp(op string, d time.Duration) {
	m.scope.Tagged(map[string]string{"op": op}).Timer("tic.kv.op.duration").Record(d)
}

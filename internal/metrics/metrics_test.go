package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/uber-go/tally/v4"
)

func TestNewNilScopeDefaultsToNoop(t *testing.T) {
	m := New(nil)
	assert.NotNil(t, m)
	assert.NotPanics(t, func() { m.RecordEval(nil) })
}

func TestRecordEvalTracksCountAndErrors(t *testing.T) {
	scope := tally.NewTestScope("", nil)
	m := New(scope)

	m.RecordEval(nil)
	m.RecordEval(errors.New("boom"))

	assert.Equal(t, int64(2), m.EvalCount.Load())
	assert.Equal(t, int64(1), m.EvalErrors.Load())

	snap := scope.Snapshot()
	counters := snap.Counters()
	assert.Contains(t, counters, "tic.eval.count+")
	assert.Contains(t, counters, "tic.eval.errors+")
}

func TestRecordSnapshotIncrementsCounter(t *testing.T) {
	scope := tally.NewTestScope("", nil)
	m := New(scope)

	m.RecordSnapshot()

	snap := scope.Snapshot()
	assert.Contains(t, snap.Counters(), "tic.snapshot.count+")
}

func TestRecordKVOpRecordsTimer(t *testing.T) {
	scope := tally.NewTestScope("", nil)
	m := New(scope)

	m.RecordKVOp("get", 5*time.Millisecond)

	snap := scope.Snapshot()
	assert.NotEmpty(t, snap.Timers())
}

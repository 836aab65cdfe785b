package kv

import (
	"time"

	"github.com/ashenfad/tic-go/internal/metrics"
)

// Instrumented wraps a Store and records each operation's duration via
// metrics.Metrics, grounded on nakama's practice of timing storage calls
// around its core_storage.go database layer and reporting them through
// the same tally scope as everything else in server/metrics.go.
type Instrumented struct {
	Store
	metrics *metrics.Metrics
}

// NewInstrumented wraps store so each Get, Set, GetMany and SetMany call
// records a tic.kv.op.duration timer tagged by operation name; Has and
// Items pass through to store untimed.
func NewInstrumented(store Store, m *metrics.Metrics) *Instrumented {
	return &Instrumented{Store: store, metrics: m}
}

func (i *Instrumented) record(op string, start time.Time) {
	if i.metrics != nil {
		i.metrics.RecordKVOp(op, time.Since(start))
	}
}

func (i *Instrumented) Get(key string) ([]byte, bool) {
	start := time.Now()
	v, ok := i.Store.Get(key)
	i.record("get", start)
	return v, ok
}

func (i *Instrumented) Set(key string, value []byte) {
	start := time.Now()
	i.Store.Set(key, value)
	i.record("set", start)
}

func (i *Instrumented) GetMany(keys ...string) map[string][]byte {
	start := time.Now()
	v := i.Store.GetMany(keys...)
	i.record("get_many", start)
	return v
}

func (i *Instrumented) SetMany(kv map[string][]byte) {
	start := time.Now()
	i.Store.SetMany(kv)
	i.record("set_many", start)
}

package tic

import (
	"github.com/ashenfad/tic-go/internal/freeze"
	"github.com/ashenfad/tic-go/internal/kv"
	"github.com/ashenfad/tic-go/internal/metrics"
	"github.com/ashenfad/tic-go/internal/state"
	"go.uber.org/zap"
)

// NewVersioned opens a Versioned store at commitHash (empty for a fresh,
// commit-less store) with the freeze/rehydrate codec already wired to
// internal/freeze, the way original_source/tic/state/versioned.py's
// Versioned is always constructed alongside its sibling freezing.py in
// practice. logger/m may be nil.
func NewVersioned(store kv.Store, commitHash string, logger *zap.Logger, m *metrics.Metrics) *state.Versioned {
	v := state.NewVersioned(store, commitHash)
	v.SetCodec(freeze.Freeze, freeze.Rehydrate)
	v.SetLogger(logger)
	v.SetMetrics(m)
	return v
}

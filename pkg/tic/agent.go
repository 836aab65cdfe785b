package tic

import (
	"github.com/ashenfad/tic-go/internal/agent"
	"github.com/ashenfad/tic-go/internal/config"
	"go.uber.org/zap"
)

// NewAgent creates an Agent using cfg's default timeout/range-cap/primer
// and logger for registration/evaluation diagnostics. A nil cfg falls back
// to config.Default(); a nil logger falls back to zap.NewNop().
func NewAgent(cfg *config.RuntimeConfig, logger *zap.Logger) *agent.Agent {
	if cfg == nil {
		cfg = config.Default()
	}
	ag := agent.New(cfg.Primer, cfg.DefaultTimeoutSeconds)
	ag.MaxRangeSize = cfg.MaxRangeSize
	return ag.WithLogger(logger)
}

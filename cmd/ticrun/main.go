// Command ticrun runs a single tic program against a fresh or existing
// versioned store, printing its stdout and exit signal. Grounded on
// nakama's main.go (config load -> logger setup -> DB connect -> serve),
// scaled down to this module's much smaller surface: load config -> build
// logger -> open KV store -> evaluate one program.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ashenfad/tic-go/internal/config"
	"github.com/ashenfad/tic-go/internal/kv"
	"github.com/ashenfad/tic-go/internal/metrics"
	"github.com/ashenfad/tic-go/pkg/tic"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to a RuntimeConfig YAML file (optional)")
	scriptPath := flag.String("script", "", "path to a tic program to evaluate")
	commit := flag.String("commit", "", "commit hash to check out before running (optional)")
	flag.Parse()

	if *scriptPath == "" {
		fmt.Fprintln(os.Stderr, "ticrun: -script is required")
		os.Exit(2)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ticrun: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	logger := config.NewLogger(cfg.Logger)
	defer logger.Sync()

	source, err := os.ReadFile(*scriptPath)
	if err != nil {
		logger.Fatal("failed to read script", zap.Error(err))
	}

	store, err := openStore(cfg)
	if err != nil {
		logger.Fatal("failed to open kv store", zap.Error(err))
	}

	m := metrics.New(nil)
	ag := tic.NewAgent(cfg, logger)
	st := tic.NewVersioned(store, *commit, logger, m)

	exitSignal, runErr := tic.Run(string(source), ag, st, 0, m)
	st.Snapshot()

	if out, viewErr := tic.View(st, tic.FocusStdout, 0); viewErr == nil {
		for _, line := range out.([]string) {
			fmt.Println(line)
		}
	} else {
		logger.Warn("could not render stdout view", zap.Error(viewErr))
	}

	if exitSignal != nil {
		logger.Info("program exited", zap.Any("signal", exitSignal))
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "ticrun: %v\n", runErr)
		os.Exit(1)
	}
}

func openStore(cfg *config.RuntimeConfig) (kv.Store, error) {
	if cfg.KVBackend == "postgres" {
		return kv.OpenPostgres(cfg.PostgresDSN)
	}
	return kv.NewMemory(), nil
}

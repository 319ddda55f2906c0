package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/hsaleh/chequeflow/internal/common"
	"github.com/hsaleh/chequeflow/internal/config"
	"github.com/hsaleh/chequeflow/internal/conversation"
	"github.com/hsaleh/chequeflow/internal/extract"
	"github.com/hsaleh/chequeflow/internal/ledger"
	"github.com/hsaleh/chequeflow/internal/normalize"
	"github.com/hsaleh/chequeflow/internal/orchestrator"
	"github.com/hsaleh/chequeflow/internal/reconcile"
)

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "chequeflow.db"
	}
	return filepath.Join(home, ".local", "share", "chequeflow", "chequeflow.db")
}

// openLedger opens (and migrates) the ledger database from configuration.
func openLedger(ctx context.Context) (*ledger.SQLiteLedger, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = defaultDBPath()
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := ledger.NewSQLiteLedger(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger at %s: %w", dbPath, err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// buildOrchestrator wires the full pipeline from configuration. The caller
// owns the returned ledger's lifetime.
func buildOrchestrator(ctx context.Context) (*orchestrator.Orchestrator, *ledger.SQLiteLedger, error) {
	store, err := openLedger(ctx)
	if err != nil {
		return nil, nil, err
	}

	if os.Getenv("GEMINI_API_KEY") == "" && os.Getenv("GOOGLE_API_KEY") == "" {
		_ = store.Close()
		return nil, nil, fmt.Errorf("%w: GEMINI_API_KEY is not set", common.ErrMissingConfig)
	}

	recognizer, err := extract.NewGeminiRecognizer(ctx,
		viper.GetString("recognition.model"),
		viper.GetDuration("recognition.timeout"))
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("failed to create recognizer: %w", err)
	}

	ttl := viper.GetDuration("session.ttl")
	sessions := conversation.New(ttl)
	sweepInterval := viper.GetDuration("session.sweep_interval")
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	sessions.StartSweeper(ctx, sweepInterval)

	engineConfig := reconcile.DefaultConfig()
	if v := viper.GetFloat64("matching.threshold"); v > 0 {
		engineConfig.MatchThreshold = v
	}
	if v := viper.GetFloat64("matching.tie_margin"); v > 0 {
		engineConfig.TieMargin = v
	}

	orchConfig := orchestrator.DefaultConfig()
	if v := viper.GetInt64("pipeline.max_concurrent_calls"); v > 0 {
		orchConfig.MaxConcurrentCalls = v
	}
	if v := viper.GetDuration("pipeline.call_timeout"); v > 0 {
		orchConfig.CallTimeout = v
	}

	orch := orchestrator.New(
		sessions,
		normalize.New(viper.GetInt("upload.max_bytes")),
		extract.NewAdapter(recognizer),
		reconcile.New(store, engineConfig),
		store,
		orchConfig,
	)
	return orch, store, nil
}

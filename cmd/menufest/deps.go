package main

import (
	"context"
	"fmt"

	"github.com/menufest/menufest/config"
	"github.com/menufest/menufest/internal/agent/core"
	"github.com/menufest/menufest/internal/agent/telemetry"
	"github.com/menufest/menufest/internal/artifact"
	"github.com/menufest/menufest/internal/recipes"
	"github.com/menufest/menufest/internal/store"
)

// buildOrchestrator wires the pipeline for the one-shot commands. The
// returned cleanup closes the inventory store.
func buildOrchestrator(ctx context.Context, cfg *config.Config) (*core.Orchestrator, func(), error) {
	if err := cfg.Storage.Postgres.Validate(); err != nil {
		return nil, nil, err
	}
	if err := cfg.Storage.Artifacts.Validate(); err != nil {
		return nil, nil, err
	}

	st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("connect inventory store: %w", err)
	}
	cleanup := func() { _ = st.Close() }

	corpus, err := recipes.Load(cfg.Recipes.DataFile)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("load recipe corpus: %w", err)
	}

	artifacts, err := artifact.New(cfg.Storage.Artifacts.Dir)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	var runs store.RunStatusStore
	if cfg.Storage.Redis.Enabled() {
		runs, err = store.NewRedisRunStore(ctx, cfg.Storage.Redis.Host, cfg.Storage.Redis.Port, cfg.Storage.Redis.Password, cfg.Storage.Redis.DB, cfg.Storage.Redis.Timeout)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect run store: %w", err)
		}
	} else {
		runs = store.NewMemoryRunStore()
	}

	provider, err := core.NewLLMProvider(cfg.LLM)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	tele := telemetry.NewTelemetry(cfg.Telemetry)
	return core.NewOrchestrator(cfg, provider, st, corpus, artifacts, runs, tele), cleanup, nil
}

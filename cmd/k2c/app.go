package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/chungjung-d/k2c-hackathon/internal/database"
	"github.com/chungjung-d/k2c-hackathon/internal/goals"
	"github.com/chungjung-d/k2c-hackathon/internal/graph"
	"github.com/chungjung-d/k2c-hackathon/internal/llm"
	"github.com/chungjung-d/k2c-hackathon/internal/llm/providers"
)

// openDatabase opens the sqlite store and ensures the schema is current.
func openDatabase() (*database.DB, error) {
	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := database.OpenWithConfig(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		BusyTimeout:     cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, err
	}

	if err := db.InitSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// connectGraph dials the graph store and verifies connectivity.
func connectGraph(ctx context.Context) (graph.Client, error) {
	client, err := graph.NewNeo4jClient(graph.Config{
		URI:      cfg.Graph.URI,
		Username: cfg.Graph.Username,
		Password: cfg.Graph.Password,
		Database: cfg.Graph.Database,
	})
	if err != nil {
		return nil, err
	}
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// buildProvider returns the configured reasoning provider, or nil when
// no credentials are configured. A nil provider means every component
// runs on its deterministic fallback.
func buildProvider() (llm.Provider, error) {
	if cfg.LLM.APIKey == "" && cfg.LLM.Provider != "mock" {
		logger.Warn("no API key configured, reasoning disabled")
		return nil, nil
	}
	return providers.NewProvider(providers.Config{
		Type:    cfg.LLM.Provider,
		Model:   cfg.LLM.Model,
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
	})
}

// buildCoordinator assembles the goal coordinator over the shared
// config store.
func buildCoordinator(db *database.DB) (*goals.Coordinator, error) {
	provider, err := buildProvider()
	if err != nil {
		return nil, err
	}

	var proposer goals.Proposer
	if provider != nil {
		proposer = goals.NewLLMProposer(provider, cfg.LLM.Model, logger)
	}
	return goals.NewCoordinator(proposer, database.NewConfigDAO(db), logger), nil
}

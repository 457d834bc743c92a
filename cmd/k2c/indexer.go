package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/chungjung-d/k2c-hackathon/internal/database"
	"github.com/chungjung-d/k2c-hackathon/internal/indexer"
)

var indexerCmd = &cobra.Command{
	Use:   "indexer",
	Short: "Run the indexing worker",
	Long: `Starts the polling worker that claims pending jobs, negotiates a
graph mutation plan for each, and applies it to the knowledge graph.
Runs until interrupted. Multiple workers may share one queue.`,
	RunE: runIndexer,
}

func runIndexer(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	graphClient, err := connectGraph(ctx)
	if err != nil {
		return err
	}
	defer graphClient.Close(ctx)

	provider, err := buildProvider()
	if err != nil {
		return err
	}

	negotiator := indexer.NewPlanNegotiator(provider, graphClient, cfg.LLM.Model, logger)
	applier := indexer.NewApplier(graphClient, logger)
	worker := indexer.NewWorker(database.NewJobDAO(db), negotiator, applier,
		cfg.Worker.Interval, cfg.Worker.BatchSize, logger)

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func init() {
	rootCmd.AddCommand(indexerCmd)
}

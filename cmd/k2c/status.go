package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/chungjung-d/k2c-hackathon/internal/graph"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the health of the job store and the graph store",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	healthy := true

	db, err := openDatabase()
	if err != nil {
		cmd.Printf("sqlite: unhealthy (%v)\n", err)
		healthy = false
	} else {
		defer db.Close()
		if err := db.Health(ctx); err != nil {
			cmd.Printf("sqlite: unhealthy (%v)\n", err)
			healthy = false
		} else {
			cmd.Printf("sqlite: healthy (%s)\n", db.Path())
		}
	}

	client, err := graph.NewNeo4jClient(graph.Config{
		URI:      cfg.Graph.URI,
		Username: cfg.Graph.Username,
		Password: cfg.Graph.Password,
		Database: cfg.Graph.Database,
	})
	if err != nil {
		return err
	}
	if err := client.Connect(ctx); err != nil {
		logger.Warn("graph connection failed", "error", err)
	} else {
		defer client.Close(ctx)
	}

	status := client.Health(ctx)
	if status.IsHealthy() {
		cmd.Printf("neo4j:  healthy (%s)\n", cfg.Graph.URI)
	} else {
		cmd.Printf("neo4j:  unhealthy (%s)\n", status.Message)
		healthy = false
	}

	if !healthy {
		return errors.New("one or more backing services are unhealthy")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

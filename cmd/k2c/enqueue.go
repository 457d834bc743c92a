package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/chungjung-d/k2c-hackathon/internal/database"
)

var enqueueFile string

var enqueueCmd = &cobra.Command{
	Use:   "enqueue [json]",
	Short: "Enqueue a captured event for indexing",
	Long: `Inserts one pending job into the queue. The job document is taken
from the argument, from --file, or from stdin. It must be valid JSON;
a top-level "payload" field, when present, is used as the structured
index payload.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEnqueue,
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	raw, err := readJobDocument(args)
	if err != nil {
		return err
	}
	if !json.Valid(raw) {
		return fmt.Errorf("job document is not valid JSON")
	}

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	var envelope struct {
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return err
	}

	id, err := database.NewJobDAO(db).Enqueue(cmd.Context(), raw, envelope.Payload)
	if err != nil {
		return err
	}

	cmd.Printf("Enqueued job %s\n", id)
	return nil
}

func readJobDocument(args []string) ([]byte, error) {
	if len(args) == 1 {
		return []byte(args[0]), nil
	}
	if enqueueFile != "" {
		return os.ReadFile(enqueueFile)
	}
	return io.ReadAll(os.Stdin)
}

func init() {
	enqueueCmd.Flags().StringVar(&enqueueFile, "file", "", "Read the job document from a file")
	rootCmd.AddCommand(enqueueCmd)
}

package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/chungjung-d/k2c-hackathon/internal/database"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit the shared config store",
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a config store value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a config store value",
	Long: `Stores a value under a key. The value is kept as JSON when it parses
as JSON, otherwise it is stored as a JSON string.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	entry, err := database.NewConfigDAO(db).Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	cmd.Println(string(entry.Value))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	value := json.RawMessage(args[1])
	if !json.Valid(value) {
		encoded, err := json.Marshal(args[1])
		if err != nil {
			return err
		}
		value = encoded
	}

	if err := database.NewConfigDAO(db).Upsert(cmd.Context(), args[0], value); err != nil {
		return err
	}

	cmd.Printf("Stored %s\n", args[0])
	return nil
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

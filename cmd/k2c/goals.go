package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chungjung-d/k2c-hackathon/internal/database"
	"github.com/chungjung-d/k2c-hackathon/internal/goals"
)

var (
	goalsRounds  int
	goalsSession string
)

var goalsCmd = &cobra.Command{
	Use:   "goals",
	Short: "Manage pipeline goals",
}

var goalsSetCmd = &cobra.Command{
	Use:   "set <goal>",
	Short: "Set the lead goal and negotiate role goals",
	Long: `Sets the lead goal directly and runs bilateral negotiation with the
preprocessing and evaluation roles. The settled goals are stored in the
config store. Without an API key the role goals fall back
deterministically.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGoalsSet,
}

var goalsMessageCmd = &cobra.Command{
	Use:   "message <text>",
	Short: "Send a conversational message to the goal gate",
	Long: `Sends one message to the conversation gate. The gate clarifies vague
intent and triggers a goal update once the intent is clear. Use
--session to continue an earlier conversation.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGoalsMessage,
}

func runGoalsSet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	coordinator, err := buildCoordinator(db)
	if err != nil {
		return err
	}

	bundle, err := coordinator.Run(ctx, strings.Join(args, " "), goalsRounds)
	if err != nil {
		return err
	}

	cmd.Printf("Lead goal:       %s\n", bundle.LeadGoal)
	cmd.Printf("Preprocess goal: %s\n", bundle.PreprocessGoal)
	cmd.Printf("Evaluation goal: %s\n", bundle.EvaluationGoal)
	cmd.Printf("Rounds:          %d\n", bundle.Rounds)
	return nil
}

func runGoalsMessage(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	coordinator, err := buildCoordinator(db)
	if err != nil {
		return err
	}
	provider, err := buildProvider()
	if err != nil {
		return err
	}

	store := goals.NewDurableStore(database.NewSessionDAO(db))
	gate := goals.NewGate(provider, cfg.LLM.Model, coordinator, store, logger)

	reply, err := gate.Message(ctx, goalsSession, strings.Join(args, " "))
	if err != nil {
		return err
	}

	cmd.Printf("Session: %s\n", reply.SessionID)
	cmd.Println(reply.Response)
	if reply.Updated {
		fmt.Fprintln(cmd.OutOrStdout())
		cmd.Printf("Goals updated after %d round(s).\n", reply.Bundle.Rounds)
	}
	return nil
}

func init() {
	goalsSetCmd.Flags().IntVar(&goalsRounds, "rounds", 0, "Negotiation rounds (default 3, max 10)")
	goalsMessageCmd.Flags().StringVar(&goalsSession, "session", "", "Conversation session id to continue")

	goalsCmd.AddCommand(goalsSetCmd)
	goalsCmd.AddCommand(goalsMessageCmd)
	rootCmd.AddCommand(goalsCmd)
}

package goals

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/chungjung-d/k2c-hackathon/internal/llm"
)

// maxSessionTurns bounds stored conversation history per session.
const maxSessionTurns = 20

const clarificationReply = "Please describe the goal you want the pipeline to pursue."

const gateInstructions = "You are the gatekeeper for a knowledge pipeline's goal setting. " +
	"Converse with the user to pin down what they want the pipeline to focus on. " +
	"Ask a short clarifying question when the intent is vague. " +
	"Once the goal is clear, set update to true and fill in the goal. " +
	"max_rounds controls how many negotiation rounds to run (default 3). " +
	`Respond with a JSON object: {"response": "<reply to the user>", "update": <bool>, "goal": "<goal when update is true>", "max_rounds": <int, optional>}.`

// gateDecision is the structured answer the gate expects per turn.
type gateDecision struct {
	Response  string `json:"response"`
	Update    bool   `json:"update"`
	Goal      string `json:"goal,omitempty"`
	MaxRounds int    `json:"max_rounds,omitempty"`
}

// GateReply is what a conversation turn yields. Bundle is non-nil only
// when this turn triggered a goal update.
type GateReply struct {
	SessionID string      `json:"session_id"`
	Response  string      `json:"response"`
	Updated   bool        `json:"updated"`
	Bundle    *GoalBundle `json:"bundle,omitempty"`
}

// Gate mediates free-form user messages into goal updates. Without a
// reasoning backend it passes messages straight through as lead goals.
type Gate struct {
	caller      *llm.Caller
	coordinator *Coordinator
	store       SessionStore
	logger      *slog.Logger
}

// NewGate wires a conversation gate. provider may be nil; store falls
// back to an in-process one when nil.
func NewGate(provider llm.Provider, model string, coordinator *Coordinator, store SessionStore, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil {
		store = NewMemoryStore()
	}
	var caller *llm.Caller
	if provider != nil {
		caller = llm.NewCaller(provider, model, logger)
	}
	return &Gate{caller: caller, coordinator: coordinator, store: store, logger: logger}
}

type gatePrompt struct {
	Message string `json:"message"`
	History []Turn `json:"history"`
}

// Message handles one conversation turn. A blank message yields a
// clarification prompt without touching the session or the backend. An
// empty session id starts a fresh session.
func (g *Gate) Message(ctx context.Context, sessionID, message string) (*GateReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return &GateReply{SessionID: sessionID, Response: clarificationReply}, nil
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	history, err := g.store.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	reply := &GateReply{SessionID: sessionID}

	if g.caller == nil {
		bundle, err := g.coordinator.Run(ctx, message, 0)
		if err != nil {
			return nil, err
		}
		reply.Updated = true
		reply.Bundle = bundle
		reply.Response = "Goals updated: " + bundle.LeadGoal
	} else {
		prompt, err := json.Marshal(gatePrompt{Message: message, History: history})
		if err != nil {
			return nil, err
		}

		var decision gateDecision
		if err := g.caller.Invoke(ctx, gateInstructions, string(prompt), &decision); err != nil {
			g.logger.Warn("gate decision failed, asking for clarification", "session_id", sessionID, "error", err)
			reply.Response = clarificationReply
		} else {
			reply.Response = decision.Response

			if decision.Update {
				goal := strings.TrimSpace(decision.Goal)
				if goal == "" {
					goal = message
				}
				bundle, err := g.coordinator.Run(ctx, goal, decision.MaxRounds)
				if err != nil {
					return nil, err
				}
				reply.Updated = true
				reply.Bundle = bundle
				g.logger.Info("goals updated via conversation", "session_id", sessionID, "rounds", bundle.Rounds)
			}
		}
	}

	history = append(history,
		Turn{Role: "user", Content: message},
		Turn{Role: "assistant", Content: reply.Response},
	)
	if len(history) > maxSessionTurns {
		history = history[len(history)-maxSessionTurns:]
	}
	if err := g.store.Save(ctx, sessionID, history); err != nil {
		g.logger.Warn("failed to save session", "session_id", sessionID, "error", err)
	}

	return reply, nil
}

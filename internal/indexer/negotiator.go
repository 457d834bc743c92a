package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/chungjung-d/k2c-hackathon/internal/database"
	"github.com/chungjung-d/k2c-hackathon/internal/graph"
	"github.com/chungjung-d/k2c-hackathon/internal/llm"
	"github.com/chungjung-d/k2c-hackathon/internal/types"
)

const (
	// groupCount is the number of independent peer groups discussing a
	// job, and also the size of the pool they run on.
	groupCount = 5

	// maxGroupRounds bounds the discussion rounds within one group.
	maxGroupRounds = 3
)

// peerRole is one fixed seat in a peer group.
type peerRole struct {
	name         string
	instructions string
}

// peerRoles are invoked once per round, in this order.
var peerRoles = []peerRole{
	{
		name: "GraphPlanner",
		instructions: "You are a peer in a group chat designing a knowledge graph layout. " +
			"Review the payload and propose node/relationship placement. " +
			"Use cypher_read to inspect the current graph if needed. " +
			"Check for conflicts with existing nodes and suggest merges. " +
			"Keep responses concise and actionable.",
	},
	{
		name: "GraphCritic",
		instructions: "You are a peer reviewer in a group chat. " +
			"Critique the proposed graph layout, check for missing relationships, " +
			"and suggest improvements. Use cypher_read to verify assumptions.",
	},
	{
		name: "SchemaLibrarian",
		instructions: "You are a peer focused on schema consistency. " +
			"Ensure node labels, relationship types, and properties are stable. " +
			"Recommend normalization or taxonomy changes when needed. " +
			"Use cypher_read to inspect existing labels.",
	},
	{
		name: "QueryStrategist",
		instructions: "You are a peer focused on queryability. " +
			"Suggest structure that supports likely KG queries and analytics. " +
			"Use cypher_read to verify existing patterns.",
	},
	{
		name: "RiskObserver",
		instructions: "You are a peer focused on data risks and leakage. " +
			"Flag sensitive properties and suggest safer placement/omission. " +
			"Use cypher_read to check what is already stored.",
	},
}

const executorInstructions = "You are the final peer. Using the payload and discussion, " +
	"produce a single Cypher upsert plan with parameters. " +
	"Use cypher_read if you need to verify existing nodes. " +
	"You may split data across multiple nodes and update existing nodes. " +
	"Check for conflicts with existing nodes (e.g., same event_id). " +
	"Include origin_job_id as a property on each new/updated node, and " +
	"also add it as a tag (e.g., origin:<id>) on relevant tag lists."

const peerShapeHint = ` Respond with a JSON object: {"message": "<your contribution>", "continue_discussion": <true to request another round>}.`

const planShapeHint = ` Respond with a JSON object: {"cypher": "<single write statement>", "params": {<parameters>}, "verification_queries": ["<read-only statement>", ...], "notes": "<optional>"}.`

// PlanNegotiator produces one mutation plan per job through bounded,
// best-effort multi-party discussion. It degrades safely: every failure
// path returns no plan and the caller falls back to the deterministic
// builder. A nil provider disables negotiation entirely.
type PlanNegotiator struct {
	provider llm.Provider
	graph    graph.Client
	model    string
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewPlanNegotiator creates a negotiator. provider may be nil, in which
// case Negotiate always reports no plan.
func NewPlanNegotiator(provider llm.Provider, graphClient graph.Client, model string, logger *slog.Logger) *PlanNegotiator {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlanNegotiator{
		provider: provider,
		graph:    graphClient,
		model:    model,
		logger:   logger,
		tracer:   otel.Tracer("k2c/indexer"),
	}
}

// peerPrompt is the JSON document every peer receives on its turn.
type peerPrompt struct {
	Round       int               `json:"round,omitempty"`
	Payload     json.RawMessage   `json:"payload"`
	RawRequest  json.RawMessage   `json:"raw_request"`
	OriginJobID string            `json:"origin_job_id"`
	Discussion  []TranscriptEntry `json:"discussion"`
}

// Negotiate runs the full group discussion for a job and synthesizes one
// mutation plan from the merged transcript. It returns nil when no live
// reasoning capability is configured or when any part of the discussion
// fails; it never panics outward.
func (n *PlanNegotiator) Negotiate(ctx context.Context, job *database.Job) *GraphPlan {
	if n.provider == nil {
		return nil
	}

	ctx, span := n.tracer.Start(ctx, "negotiate_plan",
		trace.WithAttributes(attribute.String("job.id", job.ID.String())))
	defer span.End()

	merged, err := n.runPeerGroups(ctx, job)
	if err != nil {
		n.logger.Warn("group chat planning failed", "job_id", job.ID, "error", err)
		return nil
	}

	plan, err := n.synthesize(ctx, job, merged)
	if err != nil {
		n.logger.Warn("plan synthesis failed", "job_id", job.ID, "error", err)
		return nil
	}

	return plan
}

// runPeerGroups executes all peer groups on a pool sized to the group
// count and merges their transcripts in completion order: the first
// group to finish is appended first, regardless of group index.
func (n *PlanNegotiator) runPeerGroups(ctx context.Context, job *database.Job) ([]TranscriptEntry, error) {
	results := make(chan []TranscriptEntry, groupCount)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(groupCount)
	for groupID := 1; groupID <= groupCount; groupID++ {
		groupID := groupID
		g.Go(func() error {
			discussion, err := n.runPeerGroup(gctx, groupID, job)
			if err != nil {
				return fmt.Errorf("group %d: %w", groupID, err)
			}
			results <- discussion
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(results)

	var merged []TranscriptEntry
	for discussion := range results {
		merged = append(merged, discussion...)
	}
	return merged, nil
}

// runPeerGroup runs up to maxGroupRounds rounds for one group. Within a
// round every role answers exactly once, in fixed order; the group stops
// early once no role asks to continue.
func (n *PlanNegotiator) runPeerGroup(ctx context.Context, groupID int, job *database.Job) ([]TranscriptEntry, error) {
	caller, err := n.newCaller()
	if err != nil {
		return nil, err
	}

	var discussion []TranscriptEntry

	for round := 1; round <= maxGroupRounds; round++ {
		n.logger.Info("group chat round", "group", groupID, "round", round, "job_id", job.ID)

		shouldContinue := false
		for _, role := range peerRoles {
			prompt, err := json.Marshal(peerPrompt{
				Round:       round,
				Payload:     effectiveDocument(job),
				RawRequest:  job.RawRequest,
				OriginJobID: job.ID.String(),
				Discussion:  discussion,
			})
			if err != nil {
				return nil, err
			}

			var proposal PeerProposal
			if err := caller.Invoke(ctx, role.instructions+peerShapeHint, string(prompt), &proposal); err != nil {
				return nil, fmt.Errorf("peer %s: %w", role.name, err)
			}

			discussion = append(discussion, TranscriptEntry{
				Role:    fmt.Sprintf("G%d-%s", groupID, role.name),
				Content: proposal.Message,
			})
			shouldContinue = shouldContinue || proposal.ContinueDiscussion
		}

		if !shouldContinue {
			break
		}
	}

	return discussion, nil
}

// synthesize invokes the single synthesis proposer over the merged
// discussion, constrained to return exactly one mutation plan.
func (n *PlanNegotiator) synthesize(ctx context.Context, job *database.Job, merged []TranscriptEntry) (*GraphPlan, error) {
	ctx, span := n.tracer.Start(ctx, "synthesize_plan")
	defer span.End()

	caller, err := n.newCaller()
	if err != nil {
		return nil, err
	}

	prompt, err := json.Marshal(peerPrompt{
		Payload:     effectiveDocument(job),
		RawRequest:  job.RawRequest,
		OriginJobID: job.ID.String(),
		Discussion:  merged,
	})
	if err != nil {
		return nil, err
	}

	var plan GraphPlan
	if err := caller.Invoke(ctx, executorInstructions+planShapeHint, string(prompt), &plan); err != nil {
		return nil, err
	}

	if err := plan.Validate(); err != nil {
		return nil, err
	}

	return &plan, nil
}

// newCaller builds a structured caller with the read-only graph
// inspection tool registered.
func (n *PlanNegotiator) newCaller() (*llm.Caller, error) {
	caller := llm.NewCaller(n.provider, n.model, n.logger)
	def, fn := cypherReadTool(n.graph)
	if err := caller.RegisterTool(def, fn); err != nil {
		return nil, err
	}
	return caller, nil
}

// cypherReadArgs is the argument shape of the cypher_read tool.
type cypherReadArgs struct {
	Query      string         `json:"query"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Limit      int            `json:"limit,omitempty"`
}

// cypherReadTool exposes read-only graph inspection to peers. Results
// are capped at the default read limit.
func cypherReadTool(client graph.Client) (llm.ToolDef, llm.ToolFunc) {
	def := llm.ToolDef{
		Name:        "cypher_read",
		Description: "Run a read-only Cypher query against the knowledge graph. Returns at most 25 rows.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Read-only Cypher statement",
				},
				"parameters": map[string]any{
					"type":        "object",
					"description": "Query parameters",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum rows to return (default 25)",
				},
			},
			"required": []string{"query"},
		},
	}

	fn := func(ctx context.Context, arguments string) (string, error) {
		var args cypherReadArgs
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return "", types.WrapError(types.LLM_TOOL_FAILED, "invalid cypher_read arguments", err)
		}

		limit := args.Limit
		if limit <= 0 || limit > graph.DefaultReadLimit {
			limit = graph.DefaultReadLimit
		}

		rows, err := client.Read(ctx, args.Query, args.Parameters, limit)
		if err != nil {
			return "", err
		}

		result, err := json.Marshal(map[string]any{"records": rows})
		if err != nil {
			return "", err
		}
		return string(result), nil
	}

	return def, fn
}

package indexer

import (
	"context"
	"encoding/json"
	"log/slog"
	"reflect"

	"github.com/chungjung-d/k2c-hackathon/internal/graph"
)

// Applier sanitizes plan parameters and applies one mutation plan
// transactionally against the graph store.
type Applier struct {
	graph  graph.Client
	logger *slog.Logger
}

// NewApplier creates an applier over the given graph client.
func NewApplier(client graph.Client, logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{graph: client, logger: logger}
}

// SanitizeParams converts composite parameter values to serialized
// strings: any map value, and any map found inside a list, becomes its
// compact JSON form. Flat lists of primitives pass through unchanged.
// Sanitizing an already-sanitized map is a no-op.
func SanitizeParams(params map[string]any) map[string]any {
	sanitized := make(map[string]any, len(params))
	for key, value := range params {
		sanitized[key] = sanitizeValue(value)
	}
	return sanitized
}

func sanitizeValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return encodeJSON(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = sanitizeValue(item)
		}
		return out
	default:
		return value
	}
}

// encodeJSON renders a composite value as a compact JSON string. Graph
// properties only hold primitives and flat primitive lists, so nested
// documents are stored in serialized form.
func encodeJSON(value any) string {
	encoded, err := json.Marshal(value)
	if err != nil {
		// Values reaching here came out of a JSON decode, so this is
		// effectively unreachable.
		return "{}"
	}
	return string(encoded)
}

// Apply executes the plan's write statement with sanitized parameters as
// one transaction and returns the mutation counters. Each verification
// query then runs as an independent read whose failure is logged and
// discarded; verification is observability only and never gates job
// success.
func (a *Applier) Apply(ctx context.Context, plan *GraphPlan) (graph.WriteSummary, error) {
	if err := plan.Validate(); err != nil {
		return graph.WriteSummary{}, err
	}

	sanitized := SanitizeParams(plan.Params)
	if !reflect.DeepEqual(sanitized, plan.Params) {
		a.logger.Info("sanitized plan params", "note", "non-primitive properties converted")
	}

	summary, err := a.graph.Write(ctx, plan.Cypher, sanitized)
	if err != nil {
		return graph.WriteSummary{}, err
	}

	for _, query := range plan.VerificationQueries {
		if _, err := a.graph.Read(ctx, query, nil, graph.DefaultReadLimit); err != nil {
			a.logger.Warn("verification query failed", "error", err)
		}
	}

	return summary, nil
}

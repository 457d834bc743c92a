package indexer

import (
	"fmt"

	"github.com/chungjung-d/k2c-hackathon/internal/types"
)

// defaultPlanCypher is the deterministic fallback mutation: upsert the
// user and event nodes, refresh the event's scalar features, link
// user to event, and merge the tag fan-out.
const defaultPlanCypher = `
MERGE (u:User {id: $user_id})
MERGE (e:ScreenshotEvent {event_id: $event_id})
SET e.captured_at = $captured_at,
    e.object_key = $object_key,
    e.content_type = $content_type,
    e.size_bytes = $size_bytes,
    e.sha256 = $sha256,
    e.summary = $summary,
    e.content_summary = $content_summary,
    e.user_activity = $user_activity,
    e.risk_level = $risk_level,
    e.ocr_text = $ocr_text,
    e.metadata = $metadata,
    e.origin_job_id = $origin_job_id,
    e.updated_at = timestamp()
MERGE (u)-[:CAPTURED]->(e)
FOREACH (tag IN $tags |
    MERGE (t:Tag {name: tag})
    MERGE (e)-[:HAS_TAG]->(t)
)
`

// BuildDefaultPlan constructs the proposer-free fallback plan for a
// payload. It fails before touching the graph store when the payload
// lacks an event identifier; that is the one unrecoverable input-shape
// defect, surfaced as a job error.
func BuildDefaultPlan(payload *IndexPayload, originJobID types.ID) (*GraphPlan, error) {
	if payload == nil || payload.Event.ID == "" {
		return nil, types.NewError(types.JOB_INVALID_PAYLOAD, "index payload missing event.id")
	}

	userID := payload.Event.UserID
	if userID == "" {
		userID = "unknown"
	}

	tags := make([]string, 0, len(payload.Features.Tags)+1)
	tags = append(tags, payload.Features.Tags...)
	tags = append(tags, fmt.Sprintf("origin:%s", originJobID))

	params := map[string]any{
		"event_id":        payload.Event.ID,
		"user_id":         userID,
		"captured_at":     payload.Event.CapturedAt,
		"object_key":      payload.Event.ObjectKey,
		"content_type":    payload.Event.ContentType,
		"size_bytes":      payload.Event.SizeBytes,
		"sha256":          payload.Event.SHA256,
		"summary":         payload.Features.Summary,
		"content_summary": payload.Features.ContentSummary,
		"user_activity":   payload.Features.UserActivity,
		"risk_level":      payload.Features.RiskLevel,
		"ocr_text":        payload.Features.OCRText,
		"metadata":        payload.Features.Metadata,
		"tags":            tags,
		"origin_job_id":   originJobID.String(),
	}

	return &GraphPlan{
		Cypher: defaultPlanCypher,
		Params: params,
		Notes:  "fallback plan",
	}, nil
}

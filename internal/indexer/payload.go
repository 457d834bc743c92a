package indexer

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/chungjung-d/k2c-hackathon/internal/database"
	"github.com/chungjung-d/k2c-hackathon/internal/types"
)

// IndexPayload is the normalized shape of an index job. Loosely-shaped
// external input is accepted only here, at the boundary; everything past
// parsing works with the typed form.
type IndexPayload struct {
	Event      EventInfo   `json:"event"`
	Features   FeatureInfo `json:"features"`
	FeatureID  string      `json:"feature_id,omitempty"`
	ReceivedAt string      `json:"received_at,omitempty"`
}

// EventInfo describes the captured event being indexed.
type EventInfo struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	CapturedAt  string `json:"captured_at,omitempty"`
	ObjectKey   string `json:"object_key,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	SizeBytes   int64  `json:"size_bytes,omitempty"`
	SHA256      string `json:"sha256,omitempty"`
}

// FeatureInfo carries the extracted features attached to the event.
type FeatureInfo struct {
	Summary        string         `json:"summary,omitempty"`
	ContentSummary string         `json:"content_summary,omitempty"`
	UserActivity   string         `json:"user_activity,omitempty"`
	RiskLevel      string         `json:"risk_level,omitempty"`
	OCRText        string         `json:"ocr_text,omitempty"`
	Tags           StringList     `json:"tags,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// StringList is a []string that also accepts a single JSON string or a
// mixed-type array on input. Upstream clients have historically sent
// tags in all three forms.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (s *StringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = StringList{single}
		return nil
	}

	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("tags must be a string or an array: %w", err)
	}

	out := make(StringList, 0, len(raw))
	for _, item := range raw {
		switch v := item.(type) {
		case nil:
			// dropped, matching upstream behavior
		case string:
			out = append(out, v)
		case float64:
			out = append(out, strconv.FormatFloat(v, 'f', -1, 64))
		case bool:
			out = append(out, strconv.FormatBool(v))
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("unsupported tag value: %w", err)
			}
			out = append(out, string(encoded))
		}
	}
	*s = out
	return nil
}

// ParsePayload decodes a job's normalized payload, falling back to the
// raw request when the payload column is empty.
func ParsePayload(job *database.Job) (*IndexPayload, error) {
	data := job.Payload
	if len(data) == 0 {
		data = job.RawRequest
	}
	if len(data) == 0 {
		return nil, types.NewError(types.JOB_INVALID_PAYLOAD, "job carries no payload")
	}

	var payload IndexPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, types.WrapError(types.JOB_INVALID_PAYLOAD, "failed to decode index payload", err)
	}

	return &payload, nil
}

// effectiveDocument returns the JSON document negotiation prompts should
// describe: the normalized payload when present, otherwise the raw
// request.
func effectiveDocument(job *database.Job) json.RawMessage {
	if len(job.Payload) > 0 {
		return job.Payload
	}
	if len(job.RawRequest) > 0 {
		return job.RawRequest
	}
	return json.RawMessage("{}")
}

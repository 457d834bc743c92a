package graph

import (
	"context"
	"sync"

	"github.com/chungjung-d/k2c-hackathon/internal/types"
)

// RecordedWrite captures one Write call made against a MockClient.
type RecordedWrite struct {
	Cypher string
	Params map[string]any
}

// RecordedRead captures one Read call made against a MockClient.
type RecordedRead struct {
	Cypher string
	Params map[string]any
	Limit  int
}

// MockClient is an in-memory Client for tests. It records every write
// and read, and returns configured results and errors.
type MockClient struct {
	mu sync.Mutex

	Writes []RecordedWrite
	Reads  []RecordedRead

	// WriteSummaryResult is returned by Write when WriteErr is nil.
	WriteSummaryResult WriteSummary

	// WriteErr, when set, fails every Write call.
	WriteErr error

	// ReadRows is returned by Read when ReadErr is nil.
	ReadRows []map[string]any

	// ReadErr, when set, fails every Read call.
	ReadErr error
}

// NewMockClient creates an empty mock graph client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Connect is a no-op.
func (m *MockClient) Connect(ctx context.Context) error { return nil }

// Close is a no-op.
func (m *MockClient) Close(ctx context.Context) error { return nil }

// Health always reports healthy.
func (m *MockClient) Health(ctx context.Context) types.HealthStatus {
	return types.Healthy("mock")
}

// Write records the call and returns the configured summary or error.
func (m *MockClient) Write(ctx context.Context, cypher string, params map[string]any) (WriteSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Writes = append(m.Writes, RecordedWrite{Cypher: cypher, Params: params})
	if m.WriteErr != nil {
		return WriteSummary{}, m.WriteErr
	}
	return m.WriteSummaryResult, nil
}

// Read records the call and returns the configured rows or error.
func (m *MockClient) Read(ctx context.Context, cypher string, params map[string]any, limit int) ([]map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 {
		limit = DefaultReadLimit
	}
	m.Reads = append(m.Reads, RecordedRead{Cypher: cypher, Params: params, Limit: limit})
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	if len(m.ReadRows) > limit {
		return m.ReadRows[:limit], nil
	}
	return m.ReadRows, nil
}

// WriteCount returns the number of recorded writes.
func (m *MockClient) WriteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Writes)
}

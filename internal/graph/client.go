package graph

import (
	"context"
	"time"

	"github.com/chungjung-d/k2c-hackathon/internal/types"
)

// DefaultReadLimit caps the number of rows returned by a read when the
// caller does not specify a limit.
const DefaultReadLimit = 25

// Client provides access to the knowledge graph store. Implementations
// must be safe for concurrent use: concurrent jobs may interleave merges
// on the same nodes, which is why plans are built from commutative MERGE
// clauses with last-writer-wins scalar properties.
type Client interface {
	// Connect establishes a connection to the graph store.
	Connect(ctx context.Context) error

	// Close releases all resources and closes the connection.
	Close(ctx context.Context) error

	// Health returns the current health of the graph connection.
	Health(ctx context.Context) types.HealthStatus

	// Write executes a mutation statement in one write transaction and
	// returns the mutation counters.
	Write(ctx context.Context, cypher string, params map[string]any) (WriteSummary, error)

	// Read executes a read-only statement in a read transaction and
	// returns at most limit rows. A non-positive limit defaults to
	// DefaultReadLimit.
	Read(ctx context.Context, cypher string, params map[string]any, limit int) ([]map[string]any, error)
}

// WriteSummary reports the mutation counters for one write transaction.
type WriteSummary struct {
	NodesCreated         int `json:"nodes_created"`
	NodesDeleted         int `json:"nodes_deleted"`
	RelationshipsCreated int `json:"relationships_created"`
	RelationshipsDeleted int `json:"relationships_deleted"`
	PropertiesSet        int `json:"properties_set"`
	LabelsAdded          int `json:"labels_added"`
}

// Config contains connection settings for the graph store.
type Config struct {
	// URI is the connection URI, e.g. "bolt://host:7687" or
	// "neo4j+s://host" for routed TLS connections.
	URI string

	// Username and Password for basic authentication.
	Username string
	Password string

	// Database name; empty uses the server default.
	Database string

	// MaxConnectionPoolSize limits the driver connection pool.
	MaxConnectionPoolSize int

	// ConnectionTimeout is the maximum time to wait for a connection.
	ConnectionTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		URI:                   "bolt://localhost:7687",
		Username:              "neo4j",
		Password:              "k2cneo4j",
		Database:              "neo4j",
		MaxConnectionPoolSize: 50,
		ConnectionTimeout:     30 * time.Second,
	}
}

// Validate checks if the configuration is usable.
func (c Config) Validate() error {
	if c.URI == "" {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "graph URI is required")
	}
	return nil
}

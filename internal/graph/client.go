package graph

import (
	"context"
	"errors"
)

// Client is the thin query surface the repositories need from the listing
// graph. Statements are parameterised Cypher; results come back as flat
// key-value records.
type Client interface {
	ExecuteWrite(ctx context.Context, cypher string, params map[string]any) (Result, error)
	ExecuteRead(ctx context.Context, cypher string, params map[string]any) (Result, error)
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// Result holds the records produced by a single statement.
type Result struct {
	Records []Record
}

// Record is one row of a query response, keyed by the RETURN aliases.
type Record map[string]any

// Options configures the connection to the graph store.
type Options struct {
	// URI is the Bolt endpoint, e.g. neo4j://localhost:7687. When empty the
	// caller is expected to fall back to the in-process store instead.
	URI      string
	Database string
	Username string
	Password string
	// MaxConnections bounds the driver pool. Zero keeps the driver default.
	MaxConnections int
}

// ErrMissingURI indicates a graph-backed client was requested without an
// endpoint to connect to.
var ErrMissingURI = errors.New("graph URI is required")

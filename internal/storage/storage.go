// Package storage defines the Storage interface, the contract any
// database backend must satisfy, together with the statement tables that
// bind every resource+operation pair to exactly one SQL template.
//
// Handlers never see SQL. They name a Statement and pass positional
// arguments; the backend looks the text up for its dialect and runs it
// against the shared pool.
package storage

import (
	"context"
	"errors"

	"github.com/aanand-mishra/records-api/internal/types"
)

// ErrNotFound is returned by lookups that address a single record which
// does not exist.
var ErrNotFound = errors.New("record not found")

// ErrUnknownStatement means the backend's dialect has no SQL for a Statement.
var ErrUnknownStatement = errors.New("unknown statement")

// Storage is the database contract. A single value is shared by every
// request, so implementations must be safe for concurrent use.
type Storage interface {
	// Query runs a read statement and returns every row. An empty result
	// is an empty (non-nil) slice, never an error.
	Query(ctx context.Context, stmt Statement, args ...any) ([]types.Row, error)

	// Exec runs a single mutating statement.
	Exec(ctx context.Context, stmt Statement, args ...any) (types.Result, error)

	// Ping verifies a connection can be acquired from the pool.
	Ping(ctx context.Context) error

	// Close releases the pool.
	Close() error
}

// Package store implements the server-side collection store: one row per
// named collection, each holding the whole serialized record sequence.
// The row is the unit of atomicity; there is no per-record addressing.
package store

import (
	"context"
	"encoding/json"

	"memberdesk/internal/domain"
	dErrors "memberdesk/pkg/domain-errors"
)

// Store is interface-driven so handlers and tests can run against the
// in-memory implementation while deployments use Postgres.
type Store interface {
	// Bootstrap returns every enumerated collection's contents in one
	// call. Missing rows and malformed blobs come back as empty
	// sequences, never as errors.
	Bootstrap(ctx context.Context) (map[domain.CollectionName][]json.RawMessage, error)
	// Get returns the decoded sequence for name, or an empty sequence if
	// the row is absent.
	Get(ctx context.Context, name domain.CollectionName) ([]json.RawMessage, error)
	// Put upserts the whole sequence for name. The new blob fully
	// replaces the old one and refreshes the row's updated_at.
	Put(ctx context.Context, name domain.CollectionName, records []json.RawMessage) error
	// Clear is Put with an empty sequence.
	Clear(ctx context.Context, name domain.CollectionName) error
	// ImportBulk applies Put for every entry in a stable order. A failure
	// part-way leaves earlier collections updated and later ones not;
	// callers own that property.
	ImportBulk(ctx context.Context, collections map[domain.CollectionName][]json.RawMessage) error
	// Ping reports store reachability for health checks.
	Ping(ctx context.Context) error
}

// ErrUnknownCollection rejects names outside the enumerated set before they
// reach a query.
var ErrUnknownCollection = dErrors.New(dErrors.CodeNotFound, "unknown collection")

// schemaVersion tags each stored blob so a future migration can key off it.
const schemaVersion = 1

// Package storage defines the generic keyed-document contract entity
// services depend on. Implementations live in storage/mongodb (production)
// and storage/memory (tests, local development).
package storage

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

// Store is a generic document collection keyed by store-assigned identities.
// Identities are ObjectID hex strings; operations reject malformed ids with
// apperr.ErrInvalidID before any round-trip, and GetByID reports a missing
// document as apperr.ErrNotFound. Backend failures wrap as apperr.StoreError.
type Store[T any] interface {
	// Insert stores doc and returns the assigned identity.
	Insert(ctx context.Context, doc T) (string, error)

	// GetByID returns the matching document.
	GetByID(ctx context.Context, id string) (T, error)

	// UpdateByID merges fields into the document ($set, top-level overwrite)
	// and returns the number of matched documents (0 or 1).
	UpdateByID(ctx context.Context, id string, fields bson.M) (int64, error)

	// Apply runs a raw update document ($push, $pull, $set) against the
	// document and returns the number of matched documents.
	Apply(ctx context.Context, id string, update bson.M) (int64, error)

	// DeleteByID removes the document and returns the number deleted (0 or 1).
	DeleteByID(ctx context.Context, id string) (int64, error)

	// List returns all documents matching filter as a materialized slice.
	// An empty filter matches everything.
	List(ctx context.Context, filter bson.M) ([]T, error)

	// Count returns the number of documents matching filter.
	Count(ctx context.Context, filter bson.M) (int64, error)
}

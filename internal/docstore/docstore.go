// Package docstore is the document-store backend contract used by the
// session and invite engine: path-keyed documents, filtered collection
// queries, all-or-nothing transactions, and batched writes.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a path resolves to no document. A missing
	// document is never reported as a successful empty read.
	ErrNotFound = errors.New("document not found")

	// ErrExists is returned by Create when the path is already occupied.
	ErrExists = errors.New("document already exists")

	// ErrBatchTooLarge is returned when a batch exceeds MaxBatchWrites.
	ErrBatchTooLarge = errors.New("batch exceeds write limit")
)

// MaxBatchWrites is the per-batch write ceiling. Callers with more writes
// issue sequential batches.
const MaxBatchWrites = 500

// FieldDelete marks a key for removal in a partial update.
var FieldDelete = &struct{ deleteMarker string }{"field-delete"}

// Fields is the decoded payload of a document.
type Fields = map[string]any

// Document is a stored record addressed by its logical path, e.g.
// "households/h1/sessions/s1".
type Document struct {
	Path   string
	Fields Fields
}

// DataTo unmarshals the document's fields into v.
func (d *Document) DataTo(v any) error {
	raw, err := json.Marshal(d.Fields)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode document %s: %w", d.Path, err)
	}
	return nil
}

// FieldsOf converts a struct into document fields via its JSON encoding.
func FieldsOf(v any) (Fields, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	var f Fields
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	return f, nil
}

// Filter restricts a query to documents whose field matches. Supported ops
// are "==" (Value is a scalar) and "in" (Value is a []any of scalars).
type Filter struct {
	Field string
	Op    string
	Value any
}

// OrderBy sorts query results by a top-level field.
type OrderBy struct {
	Field string
	Desc  bool
}

// Query describes a filtered read over one collection path.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    *OrderBy
	Limit      int
}

// Reader is the read surface shared by the store and transaction handles.
type Reader interface {
	// Get returns the document at path, or ErrNotFound.
	Get(ctx context.Context, path string) (*Document, error)
}

// Writer is the write surface shared by the store and transaction handles.
type Writer interface {
	// Set creates or overwrites the document at path.
	Set(ctx context.Context, path string, fields Fields) error
	// Update merges top-level fields into an existing document. Values equal
	// to FieldDelete remove the key. Returns ErrNotFound if absent.
	Update(ctx context.Context, path string, fields Fields) error
	// Delete removes the document at path. Deleting a missing document is an
	// ErrNotFound, not a silent no-op.
	Delete(ctx context.Context, path string) error
}

// Tx is the handle passed to a transaction body. Every operation is scoped
// to the transaction; either all commit or none do.
type Tx interface {
	Reader
	Writer
	// Create writes a new document, failing with ErrExists if the path is
	// already occupied.
	Create(ctx context.Context, path string, fields Fields) error
}

// Store is the full backend contract.
type Store interface {
	Reader
	Writer
	RunQuery(ctx context.Context, q Query) ([]Document, error)
	// RunTransaction executes fn against a transaction handle and commits if
	// fn returns nil. Any error rolls everything back and is returned as-is.
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error
	// NewBatch returns an empty write batch bound to this store.
	NewBatch() *Batch
}

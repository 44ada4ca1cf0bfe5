// Package store defines the transactional document store abstraction.
// This package defines interfaces that decouple domain logic from specific
// database implementations, following the Dependency Inversion Principle.
//
// Documents are schemaless JSON values addressed by slash-separated paths,
// e.g. "companies/{id}/branches/{id}/transfers/{id}". Odd path segments name
// collections, even segments name documents. All multi-document invariants in
// the domain layer run inside RunTransaction.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"melowms/internal/core/apperror"
)

// ErrConflict signals that a transaction lost a race with a concurrent writer
// and should be retried. Implementations wrap their native conflict errors
// (serialization failures, version mismatches) with this sentinel.
var ErrConflict = errors.New("transactional conflict")

// Document is a point-in-time snapshot of a stored document.
type Document struct {
	// Path is the full document path.
	Path string

	// Raw holds the document body as canonical JSON.
	Raw json.RawMessage

	// Version increments on every write (optimistic concurrency token).
	Version int64

	CreateTime time.Time
	UpdateTime time.Time
}

// ID returns the last path segment.
func (d *Document) ID() string {
	idx := strings.LastIndexByte(d.Path, '/')
	return d.Path[idx+1:]
}

// DataTo unmarshals the document body into a typed value.
// Shape mismatches surface as validation errors (parse, don't validate).
func (d *Document) DataTo(v any) error {
	if err := json.Unmarshal(d.Raw, v); err != nil {
		return apperror.NewValidation("document does not match expected shape").
			WithDetail("path", d.Path).
			WithCause(err)
	}
	return nil
}

// Fields unmarshals the document body into a generic map.
func (d *Document) Fields() (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(d.Raw, &m); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", d.Path, err)
	}
	return m, nil
}

// Op is a query filter operator.
type Op string

const (
	OpEqual        Op = "=="
	OpLess         Op = "<"
	OpLessEqual    Op = "<="
	OpGreater      Op = ">"
	OpGreaterEqual Op = ">="
)

// Filter restricts a query to documents whose field matches the value.
// Field addresses a top-level key of the document body.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Query describes a filtered collection read.
type Query struct {
	// Collection is the collection path (odd number of segments).
	Collection string

	Filters []Filter

	// OrderBy sorts by a top-level field; empty means path order.
	OrderBy string
	Desc    bool

	Limit int
}

// Tx exposes transactional document operations. All reads observe a
// consistent snapshot; all writes commit atomically or not at all.
type Tx interface {
	// Get returns the document at path, or nil if it does not exist.
	Get(path string) (*Document, error)

	// Query performs a filtered collection read inside the transaction.
	Query(q Query) ([]*Document, error)

	// Create writes a new document; fails if one already exists at path.
	Create(path string, data any) error

	// Set writes the document, creating or fully replacing it.
	Set(path string, data any) error

	// Update fully replaces an existing document; fails if absent.
	Update(path string, data any) error

	// Delete removes the document. Deleting a missing document is a no-op.
	Delete(path string) error
}

// Store is the transactional document store contract.
type Store interface {
	// Get returns the document at path, or nil if it does not exist.
	Get(ctx context.Context, path string) (*Document, error)

	// Query performs a filtered collection read.
	Query(ctx context.Context, q Query) ([]*Document, error)

	// RunTransaction executes fn inside one atomic read-modify-write
	// transaction. Conflicting concurrent writes abort the attempt; the
	// store retries with bounded backoff and surfaces CONFLICT once
	// retries are exhausted.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// --- Path helpers ---

// ValidateDocPath checks that path addresses a document (even segment count).
func ValidateDocPath(path string) error {
	segs := strings.Split(path, "/")
	if len(segs) == 0 || len(segs)%2 != 0 {
		return apperror.NewValidation("invalid document path").WithDetail("path", path)
	}
	for _, s := range segs {
		if s == "" {
			return apperror.NewValidation("empty path segment").WithDetail("path", path)
		}
	}
	return nil
}

// CollectionOf returns the collection path of a document path.
func CollectionOf(docPath string) string {
	idx := strings.LastIndexByte(docPath, '/')
	if idx < 0 {
		return ""
	}
	return docPath[:idx]
}

// Encode marshals a typed value to the canonical JSON document body.
func Encode(data any) (json.RawMessage, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	if len(raw) == 0 || raw[0] != '{' {
		return nil, apperror.NewValidation("document body must be a JSON object")
	}
	return raw, nil
}

// --- Retry policy ---

// RetryPolicy bounds conflict retries around a transaction.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// DefaultRetryPolicy returns the platform-wide conflict retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseBackoff: 10 * time.Millisecond,
		MaxBackoff:  500 * time.Millisecond,
	}
}

// RunWithRetry invokes attempt until it succeeds, fails with a
// non-conflict error, or the policy is exhausted. Backoff grows
// exponentially with jitter.
func RunWithRetry(ctx context.Context, p RetryPolicy, attempt func(ctx context.Context) error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	backoff := p.BaseBackoff
	var lastErr error
	for i := 0; i < p.MaxAttempts; i++ {
		lastErr = attempt(ctx)
		if lastErr == nil || !errors.Is(lastErr, ErrConflict) {
			return lastErr
		}

		if i == p.MaxAttempts-1 {
			break
		}

		// Full jitter keeps colliding writers from retrying in lockstep.
		sleep := time.Duration(rand.Int63n(int64(backoff) + 1))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}

		backoff *= 2
		if backoff > p.MaxBackoff {
			backoff = p.MaxBackoff
		}
	}

	return apperror.NewConflict("operation kept conflicting with concurrent changes, try again").
		WithDetail("attempts", p.MaxAttempts).
		WithCause(lastErr)
}

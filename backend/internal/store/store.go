// Package store is the graph store adapter: node and relationship primitives
// over a property graph, with a Neo4j backend and an embedded Badger backend.
//
// Every node is addressed by a Ref (label, unique key property, key value).
// Lookups that match nothing return nil or an empty slice; backend failures
// surface as *errors.ErrStoreUnavailable.
package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"

	apperrors "askgraph/backend/pkg/errors"
)

// ErrQueryUnsupported is returned by Guard.Query when the wrapped backend has no query language
var ErrQueryUnsupported = stderrors.New("backend does not support pattern queries")

// Props holds node or relationship properties
type Props map[string]any

// String returns the string property key, or "" when absent
func (p Props) String(key string) string {
	if s, ok := p[key].(string); ok {
		return s
	}
	return ""
}

// Int64 returns the integer property key, or 0 when absent
func (p Props) Int64(key string) int64 {
	return toInt64(p[key])
}

// Ref addresses a node through its unique key
type Ref struct {
	Label string
	Key   string
	Value string
}

// NewRef builds a Ref
func NewRef(label, key, value string) Ref {
	return Ref{Label: label, Key: key, Value: value}
}

func (r Ref) String() string {
	return fmt.Sprintf("(:%s {%s: %q})", r.Label, r.Key, r.Value)
}

func (r Ref) validate() error {
	if !validIdentifier.MatchString(r.Label) {
		return apperrors.NewValidation("label", fmt.Sprintf("%q is not a valid label", r.Label))
	}
	if !validIdentifier.MatchString(r.Key) {
		return apperrors.NewValidation("key", fmt.Sprintf("%q is not a valid property name", r.Key))
	}
	if r.Value == "" || strings.ContainsRune(r.Value, 0) {
		return apperrors.NewValidation(r.Key, "key value must be non-empty and free of NUL bytes")
	}
	return nil
}

// Node is a stored node
type Node struct {
	Label string
	Props Props
}

// Direction selects which side of a relationship a traversal follows
type Direction int

const (
	// Outgoing follows (ref)-[:TYPE]->(other)
	Outgoing Direction = iota
	// Incoming follows (ref)<-[:TYPE]-(other)
	Incoming
)

func (d Direction) String() string {
	if d == Incoming {
		return "incoming"
	}
	return "outgoing"
}

// Tx is the set of graph primitives available inside a transaction
type Tx interface {
	// FindOne returns the node addressed by ref, or nil
	FindOne(ctx context.Context, ref Ref) (*Node, error)
	// FindBy returns every node with label whose property prop equals value
	FindBy(ctx context.Context, label, prop string, value any) ([]*Node, error)
	// UpsertNode creates the node with props unless it exists; reports whether it was created
	UpsertNode(ctx context.Context, ref Ref, props Props) (bool, error)
	// SetProps merges props into an existing node; reports whether the node exists
	SetProps(ctx context.Context, ref Ref, props Props) (bool, error)
	// Increment adds delta to an integer property; reports whether the node exists
	Increment(ctx context.Context, ref Ref, prop string, delta int64) (bool, error)
	// CreateRelationship links two existing nodes; reports false when either is missing
	CreateRelationship(ctx context.Context, from Ref, relType string, to Ref, props Props) (bool, error)
	// MergeRelationship links two existing nodes unless already linked; reports whether it was created
	MergeRelationship(ctx context.Context, from Ref, relType string, to Ref) (bool, error)
	// HasRelationship reports whether from-[:relType]->to exists
	HasRelationship(ctx context.Context, from Ref, relType string, to Ref) (bool, error)
	// Related returns the distinct nodes one relType hop away; label "" matches any label
	Related(ctx context.Context, ref Ref, relType string, dir Direction, label string) ([]*Node, error)
	// DeleteRelationships removes relType edges at ref; returns how many were removed
	DeleteRelationships(ctx context.Context, ref Ref, relType string, dir Direction, label string) (int, error)
}

// Store is a transactional graph store
type Store interface {
	// View runs fn in a read-only transaction
	View(ctx context.Context, fn func(tx Tx) error) error
	// Update runs fn in a read-write transaction committed only when fn succeeds
	Update(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
	Backend() string
}

// Record is one row of a pattern query result
type Record map[string]any

// Querier runs backend-native pattern queries
type Querier interface {
	Query(ctx context.Context, query string, params map[string]any) ([]Record, error)
}

var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validateIdentifier(kind, name string) error {
	if !validIdentifier.MatchString(name) {
		return apperrors.NewValidation(kind, fmt.Sprintf("%q is not a valid identifier", name))
	}
	return nil
}

func validateLabelFilter(label string) error {
	if label == "" {
		return nil
	}
	return validateIdentifier("label", label)
}

// translate converts a backend error into the store error taxonomy.
// Errors that already carry an application type pass through unchanged.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	var typed *apperrors.BaseError
	if stderrors.As(err, &typed) {
		return err
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewContextCancelled(op, err)
	}
	return apperrors.NewStoreUnavailable(op, err)
}

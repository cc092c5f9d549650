package graph

import (
	"strings"

	"github.com/google/uuid"

	"askgraph/backend/internal/store"
	apperrors "askgraph/backend/pkg/errors"
)

func newUUID() string {
	return uuid.NewString()
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// first returns the first node of nodes or nil
func first(nodes []*store.Node) *store.Node {
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// mustExist turns a "node missing" report from a write primitive into ErrNotFound
func mustExist(found bool, kind, id string) error {
	if !found {
		return apperrors.NewNotFound(kind, id)
	}
	return nil
}

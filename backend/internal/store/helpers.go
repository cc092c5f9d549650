package store

import (
	"encoding/json"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ============================================================================
// Helper Functions
// ============================================================================

func toInt64(val any) int64 {
	switch v := val.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return int64(f)
		}
	}
	return 0
}

// normalizeValue maps decoded JSON numbers onto the types the Neo4j driver
// returns, so both backends hand out int64 for integers.
func normalizeValue(val any) any {
	switch v := val.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizeValue(item)
		}
		return out
	}
	return val
}

func valuesEqual(a, b any) bool {
	a, b = normalizeValue(a), normalizeValue(b)
	switch av := a.(type) {
	case int64:
		switch bv := b.(type) {
		case int64:
			return av == bv
		case float64:
			return float64(av) == bv
		}
		return false
	case float64:
		switch bv := b.(type) {
		case int64:
			return av == float64(bv)
		case float64:
			return av == bv
		}
		return false
	case string, bool:
		return a == b
	}
	return false
}

func copyProps(p Props) Props {
	out := make(Props, len(p))
	for k, v := range p {
		out[k] = normalizeValue(v)
	}
	return out
}

func getBoolFromRecord(record *neo4j.Record, key string) bool {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return false
	}
	if b, ok := val.(bool); ok {
		return b
	}
	return false
}

func getInt64FromRecord(record *neo4j.Record, key string) int64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	return toInt64(val)
}

func getNodeFromRecord(record *neo4j.Record, key string) *Node {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return nil
	}
	n, ok := val.(neo4j.Node)
	if !ok {
		return nil
	}
	label := ""
	if len(n.Labels) > 0 {
		label = n.Labels[0]
	}
	return &Node{Label: label, Props: copyProps(n.Props)}
}

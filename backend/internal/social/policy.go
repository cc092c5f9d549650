package social

import (
	"fmt"
	"strings"

	apperrors "askgraph/backend/pkg/errors"
)

// UpvotePolicy decides when an upvote moves the question and author counters
type UpvotePolicy int

const (
	// UpvoteCountEveryCall increments both counters on every call, even when
	// the voter already upvoted the answer. The UPVOTE edge is still merged.
	UpvoteCountEveryCall UpvotePolicy = iota
	// UpvoteCountOnce increments the counters only when the UPVOTE edge is new
	UpvoteCountOnce
)

func (p UpvotePolicy) String() string {
	switch p {
	case UpvoteCountOnce:
		return "once"
	default:
		return "every_call"
	}
}

// ParseUpvotePolicy maps a config value to a policy; "" selects the default
func ParseUpvotePolicy(value string) (UpvotePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "every_call":
		return UpvoteCountEveryCall, nil
	case "once":
		return UpvoteCountOnce, nil
	default:
		return UpvoteCountEveryCall, apperrors.NewValidation("upvote_policy", fmt.Sprintf("unknown policy %q", value))
	}
}

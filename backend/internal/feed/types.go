package feed

import "askgraph/backend/internal/graph"

// Item is one feed row: a question with its publisher and tags
type Item struct {
	Author   string         `json:"author"`
	Question graph.Question `json:"question"`
	Tags     []string       `json:"tags"`
}

// SimilarUser is another publisher sharing tags with the viewer
type SimilarUser struct {
	Username   string   `json:"username"`
	SharedTags []string `json:"shared_tags"`
}

// Commonality summarizes the overlap between two users.
//
// A like is a bookmark: LikeCount is the number of the viewer's questions
// carrying a BOOKMARK edge from the other user. Upvotes on answers are not counted.
type Commonality struct {
	// LikeCount is the number of the viewer's questions the other user bookmarked
	LikeCount  int      `json:"like_count"`
	SharedTags []string `json:"shared_tags"`
}

// AnswerItem is an answer with its author and upvote count
type AnswerItem struct {
	Author  string       `json:"author"`
	Answer  graph.Answer `json:"answer"`
	Upvotes int          `json:"upvotes"`
}

// Suggestion is a user the viewer might want to follow
type Suggestion struct {
	Username    string `json:"username"`
	UpvoteCount int64  `json:"upvote_count"`
	// Via lists the viewer's followees that follow this user
	Via []string `json:"via"`
}

// Kind selects one of the personalized feeds
type Kind string

const (
	// KindTimeline orders by most recent activity
	KindTimeline Kind = "timeline"
	// KindVoteline orders by upvotes
	KindVoteline Kind = "voteline"
	// KindFollowing reaches two hops into the follow graph and orders by upvotes
	KindFollowing Kind = "following"
)

// depth is how many FOLLOW hops set A traverses
func (k Kind) depth() int {
	if k == KindFollowing {
		return 2
	}
	return 1
}

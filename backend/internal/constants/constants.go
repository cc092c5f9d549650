package constants

// Node labels
const (
	LabelUser     = "User"
	LabelQuestion = "Question"
	LabelAnswer   = "Answer"
	LabelTag      = "Tag"
)

// Relationship types
const (
	RelPublished = "PUBLISHED"
	RelTagged    = "TAGGED"
	RelAnswered  = "ANSWERED"
	RelFollow    = "FOLLOW"
	RelBookmark  = "BOOKMARK"
	RelUpvote    = "UPVOTE"
)

// Feed sizes
const (
	// RecentQuestionsLimit caps a user's recent-questions list
	RecentQuestionsLimit = 5
	// TodaysQuestionsLimit caps the global front-page list
	TodaysQuestionsLimit = 5
	// FeedLimit caps timeline, voteline and following feed
	FeedLimit = 10
	// SimilarUsersLimit caps the similar-users list
	SimilarUsersLimit = 3
)

// User defaults
const (
	DefaultBio = "Cool person!"
	// DefaultAvatarCount is the number of bundled default avatars (default0.jpg .. default10.jpg)
	DefaultAvatarCount = 11
)

package graph

import (
	"askgraph/backend/internal/constants"
	"askgraph/backend/internal/store"
)

// ============================================================================
// Graph Types
// ============================================================================

// Property names as stored on nodes
const (
	propUsername     = "username"
	propPasswordHash = "password_hash"
	propBio          = "bio"
	propUpvoteCount  = "upvote_count"
	propAvatarRef    = "avatar_ref"
	propID           = "id"
	propTitle        = "title"
	propText         = "text"
	propCreatedAt    = "created_at"
	propCreatedDate  = "created_date"
	propUpdatedAt    = "updated_at"
	propUpdatedDate  = "updated_date"
	propName         = "name"
)

// UniqueKeys maps each label to its unique key property
var UniqueKeys = map[string]string{
	constants.LabelUser:     propUsername,
	constants.LabelQuestion: propID,
	constants.LabelAnswer:   propID,
	constants.LabelTag:      propName,
}

// User represents a registered user
type User struct {
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Bio          string `json:"bio"`
	UpvoteCount  int64  `json:"upvote_count"`
	AvatarRef    string `json:"avatar_ref"`
}

// Question represents a published question.
// UpdatedAt/UpdatedDate track the last answer, CreatedAt/CreatedDate the publication.
type Question struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Text        string `json:"text"`
	CreatedAt   int64  `json:"created_at"`
	CreatedDate string `json:"created_date"`
	UpdatedAt   int64  `json:"updated_at"`
	UpdatedDate string `json:"updated_date"`
	UpvoteCount int64  `json:"upvote_count"`
}

// Answer represents an answer to a question
type Answer struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	CreatedAt   int64  `json:"created_at"`
	CreatedDate string `json:"created_date"`
}

// UserRef addresses a user node
func UserRef(username string) store.Ref {
	return store.NewRef(constants.LabelUser, propUsername, username)
}

// QuestionRef addresses a question node
func QuestionRef(id string) store.Ref {
	return store.NewRef(constants.LabelQuestion, propID, id)
}

// AnswerRef addresses an answer node
func AnswerRef(id string) store.Ref {
	return store.NewRef(constants.LabelAnswer, propID, id)
}

// TagRef addresses a tag node
func TagRef(name string) store.Ref {
	return store.NewRef(constants.LabelTag, propName, name)
}

func userFromNode(n *store.Node) *User {
	if n == nil {
		return nil
	}
	return &User{
		Username:     n.Props.String(propUsername),
		PasswordHash: n.Props.String(propPasswordHash),
		Bio:          n.Props.String(propBio),
		UpvoteCount:  n.Props.Int64(propUpvoteCount),
		AvatarRef:    n.Props.String(propAvatarRef),
	}
}

func questionFromNode(n *store.Node) *Question {
	if n == nil {
		return nil
	}
	return &Question{
		ID:          n.Props.String(propID),
		Title:       n.Props.String(propTitle),
		Text:        n.Props.String(propText),
		CreatedAt:   n.Props.Int64(propCreatedAt),
		CreatedDate: n.Props.String(propCreatedDate),
		UpdatedAt:   n.Props.Int64(propUpdatedAt),
		UpdatedDate: n.Props.String(propUpdatedDate),
		UpvoteCount: n.Props.Int64(propUpvoteCount),
	}
}

func answerFromNode(n *store.Node) *Answer {
	if n == nil {
		return nil
	}
	return &Answer{
		ID:          n.Props.String(propID),
		Text:        n.Props.String(propText),
		CreatedAt:   n.Props.Int64(propCreatedAt),
		CreatedDate: n.Props.String(propCreatedDate),
	}
}

func questionsFromNodes(nodes []*store.Node) []Question {
	out := make([]Question, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, *questionFromNode(n))
	}
	return out
}

func namesFromNodes(nodes []*store.Node, prop string) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if v := n.Props.String(prop); v != "" {
			out = append(out, v)
		}
	}
	return out
}

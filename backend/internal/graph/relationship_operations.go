package graph

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"askgraph/backend/internal/constants"
	"askgraph/backend/internal/store"
	apperrors "askgraph/backend/pkg/errors"
)

// ============================================================================
// Social Relationship Operations
// ============================================================================

// Follow links follower to followee; returns false when already following
func (t *Tx) Follow(ctx context.Context, follower, followee string) (bool, error) {
	if follower == followee {
		return false, apperrors.NewValidation("followee", "users cannot follow themselves")
	}
	if err := t.requireUsers(ctx, follower, followee); err != nil {
		return false, err
	}
	created, err := t.tx.MergeRelationship(ctx, UserRef(follower), constants.RelFollow, UserRef(followee))
	if err != nil {
		return false, fmt.Errorf("failed to follow: %w", err)
	}
	if created {
		t.repo.logger.Info("User followed",
			zap.String("follower", follower),
			zap.String("followee", followee),
		)
	}
	return created, nil
}

// IsFollowing reports whether follower follows followee
func (t *Tx) IsFollowing(ctx context.Context, follower, followee string) (bool, error) {
	if follower == "" || followee == "" {
		return false, nil
	}
	ok, err := t.tx.HasRelationship(ctx, UserRef(follower), constants.RelFollow, UserRef(followee))
	if err != nil {
		return false, fmt.Errorf("failed to check follow: %w", err)
	}
	return ok, nil
}

// Followees returns the usernames username follows
func (t *Tx) Followees(ctx context.Context, username string) ([]string, error) {
	nodes, err := t.tx.Related(ctx, UserRef(username), constants.RelFollow, store.Outgoing, constants.LabelUser)
	if err != nil {
		return nil, fmt.Errorf("failed to load followees: %w", err)
	}
	return namesFromNodes(nodes, propUsername), nil
}

// Bookmark links the user to the question; returns false when already bookmarked
func (t *Tx) Bookmark(ctx context.Context, username, questionID string) (bool, error) {
	if err := t.requireUsers(ctx, username); err != nil {
		return false, err
	}
	q, err := t.FindQuestion(ctx, questionID)
	if err != nil {
		return false, err
	}
	if q == nil {
		return false, apperrors.NewNotFound(constants.LabelQuestion, questionID)
	}
	created, err := t.tx.MergeRelationship(ctx, UserRef(username), constants.RelBookmark, QuestionRef(questionID))
	if err != nil {
		return false, fmt.Errorf("failed to bookmark: %w", err)
	}
	return created, nil
}

// Upvote links the voter to the answer; returns false when the edge already exists
func (t *Tx) Upvote(ctx context.Context, voter, answerID string) (bool, error) {
	created, err := t.tx.MergeRelationship(ctx, UserRef(voter), constants.RelUpvote, AnswerRef(answerID))
	if err != nil {
		return false, fmt.Errorf("failed to upvote: %w", err)
	}
	return created, nil
}

// HasUpvoted reports whether voter upvoted the answer
func (t *Tx) HasUpvoted(ctx context.Context, voter, answerID string) (bool, error) {
	ok, err := t.tx.HasRelationship(ctx, UserRef(voter), constants.RelUpvote, AnswerRef(answerID))
	if err != nil {
		return false, fmt.Errorf("failed to check upvote: %w", err)
	}
	return ok, nil
}

func (t *Tx) requireUsers(ctx context.Context, usernames ...string) error {
	for _, name := range usernames {
		ok, err := t.UserExists(ctx, name)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.NewNotFound(constants.LabelUser, name)
		}
	}
	return nil
}

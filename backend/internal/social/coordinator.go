// Package social applies user actions that mutate the graph. Every action
// runs inside a single store transaction.
package social

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"askgraph/backend/internal/constants"
	"askgraph/backend/internal/graph"
	apperrors "askgraph/backend/pkg/errors"
	"askgraph/backend/pkg/logger"
)

// Coordinator performs multi-step social mutations
type Coordinator struct {
	repo     *graph.Repository
	policy   UpvotePolicy
	validate *validator.Validate
	logger   *zap.Logger
}

// NewCoordinator creates a coordinator using the given upvote counter policy
func NewCoordinator(repo *graph.Repository, policy UpvotePolicy) *Coordinator {
	return &Coordinator{
		repo:     repo,
		policy:   policy,
		validate: newValidator(),
		logger:   logger.Named("social"),
	}
}

// Policy returns the upvote counter policy in effect
func (c *Coordinator) Policy() UpvotePolicy { return c.policy }

// Register creates a user account; returns false when the username is taken
func (c *Coordinator) Register(ctx context.Context, username, passwordHash string) (bool, error) {
	if err := c.check(profileInput{Username: username}); err != nil {
		return false, err
	}
	return c.repo.RegisterUser(ctx, username, passwordHash)
}

// Follow makes me follow them; returns false when already following
func (c *Coordinator) Follow(ctx context.Context, me, them string) (bool, error) {
	var created bool
	err := c.repo.Update(ctx, func(tx *graph.Tx) error {
		var err error
		created, err = tx.Follow(ctx, me, them)
		return err
	})
	return created, err
}

// IsFollowing reports whether me follows them
func (c *Coordinator) IsFollowing(ctx context.Context, me, them string) (bool, error) {
	var ok bool
	err := c.repo.View(ctx, func(tx *graph.Tx) error {
		var err error
		ok, err = tx.IsFollowing(ctx, me, them)
		return err
	})
	return ok, err
}

// UpvoteAnswer records voter's upvote on the answer. The parent question's
// counter, the answer author's counter and the UPVOTE edge are written in one
// transaction. Returns whether the UPVOTE edge was new.
func (c *Coordinator) UpvoteAnswer(ctx context.Context, voter, answerID string) (bool, error) {
	var created bool
	err := c.repo.Update(ctx, func(tx *graph.Tx) error {
		exists, err := tx.UserExists(ctx, voter)
		if err != nil {
			return err
		}
		if !exists {
			return apperrors.NewNotFound(constants.LabelUser, voter)
		}
		answer, err := tx.FindAnswer(ctx, answerID)
		if err != nil {
			return err
		}
		if answer == nil {
			return apperrors.NewNotFound(constants.LabelAnswer, answerID)
		}

		questionID, err := tx.AnswerQuestion(ctx, answerID)
		if err != nil {
			return err
		}
		author, err := tx.AnswerAuthor(ctx, answerID)
		if err != nil {
			return err
		}

		created, err = tx.Upvote(ctx, voter, answerID)
		if err != nil {
			return err
		}
		if !created && c.policy == UpvoteCountOnce {
			return nil
		}

		if questionID != "" {
			if err := tx.IncrementQuestionUpvotes(ctx, questionID); err != nil {
				return err
			}
		}
		if author != "" {
			if err := tx.IncrementUserUpvotes(ctx, author); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	c.logger.Info("Answer upvoted",
		zap.String("voter", voter),
		zap.String("answer_id", answerID),
		zap.Bool("new_edge", created),
		zap.String("policy", c.policy.String()),
	)
	return created, nil
}

// Bookmark saves the question for user; repeated calls are no-ops
func (c *Coordinator) Bookmark(ctx context.Context, username, questionID string) (bool, error) {
	var created bool
	err := c.repo.Update(ctx, func(tx *graph.Tx) error {
		var err error
		created, err = tx.Bookmark(ctx, username, questionID)
		return err
	})
	return created, err
}

// AddQuestion publishes a question with its tags
func (c *Coordinator) AddQuestion(ctx context.Context, author, title string, tags graph.TagSet, text string) (*graph.Question, error) {
	if err := c.check(QuestionInput{Author: author, Title: title, Text: text, Tags: tags}); err != nil {
		return nil, err
	}
	return c.repo.PublishQuestion(ctx, author, title, text, tags)
}

// AddAnswer publishes an answer and marks the question as active
func (c *Coordinator) AddAnswer(ctx context.Context, author, questionID, text string) (*graph.Answer, error) {
	if err := c.check(AnswerInput{Author: author, QuestionID: questionID, Text: text}); err != nil {
		return nil, err
	}
	return c.repo.PublishAnswer(ctx, author, questionID, text)
}

// ReplaceInterests swaps the user's interest tags for tags
func (c *Coordinator) ReplaceInterests(ctx context.Context, username string, tags graph.TagSet) error {
	if err := c.check(profileInput{Username: username}); err != nil {
		return err
	}
	err := c.repo.Update(ctx, func(tx *graph.Tx) error {
		exists, err := tx.UserExists(ctx, username)
		if err != nil {
			return err
		}
		if !exists {
			return apperrors.NewNotFound(constants.LabelUser, username)
		}
		if _, err := tx.ClearTags(ctx, graph.UserRef(username)); err != nil {
			return err
		}
		if tags.Len() == 0 {
			return nil
		}
		return tx.SetTags(ctx, graph.UserRef(username), tags)
	})
	if err != nil {
		return err
	}
	c.logger.Info("Replaced interests",
		zap.String("username", username),
		zap.String("tags", tags.String()),
	)
	return nil
}

// Interests returns the user's interest tags
func (c *Coordinator) Interests(ctx context.Context, username string) (graph.TagSet, error) {
	var tags graph.TagSet
	err := c.repo.View(ctx, func(tx *graph.Tx) error {
		var err error
		tags, err = tx.InterestTags(ctx, username)
		return err
	})
	return tags, err
}

// ChangeBio replaces the user's bio
func (c *Coordinator) ChangeBio(ctx context.Context, username, bio string) error {
	if err := c.check(profileInput{Username: username, Value: bio}); err != nil {
		return err
	}
	return c.repo.Update(ctx, func(tx *graph.Tx) error {
		return tx.SetBio(ctx, username, bio)
	})
}

// ChangePassword stores a new password hash
func (c *Coordinator) ChangePassword(ctx context.Context, username, passwordHash string) error {
	if err := c.check(profileInput{Username: username, Value: passwordHash}); err != nil {
		return err
	}
	if passwordHash == "" {
		return apperrors.NewValidation("password", "must not be empty")
	}
	return c.repo.Update(ctx, func(tx *graph.Tx) error {
		return tx.SetPasswordHash(ctx, username, passwordHash)
	})
}

// ChangeAvatar stores a new avatar reference
func (c *Coordinator) ChangeAvatar(ctx context.Context, username, avatarRef string) error {
	if err := c.check(profileInput{Username: username, Value: avatarRef}); err != nil {
		return err
	}
	if avatarRef == "" {
		return apperrors.NewValidation("avatar", "must not be empty")
	}
	return c.repo.Update(ctx, func(tx *graph.Tx) error {
		return tx.SetAvatar(ctx, username, avatarRef)
	})
}

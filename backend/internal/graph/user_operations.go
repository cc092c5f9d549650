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
// User Operations
// ============================================================================

// RegisterUser creates the user with default bio and avatar.
// Returns false, without touching the existing node, when the username is taken.
func (t *Tx) RegisterUser(ctx context.Context, username, passwordHash string) (bool, error) {
	if username == "" {
		return false, apperrors.NewValidation("username", "must not be empty")
	}
	created, err := t.tx.UpsertNode(ctx, UserRef(username), store.Props{
		propPasswordHash: passwordHash,
		propBio:          constants.DefaultBio,
		propUpvoteCount:  int64(0),
		propAvatarRef:    t.repo.avatar(),
	})
	if err != nil {
		return false, fmt.Errorf("failed to register user: %w", err)
	}
	if created {
		t.repo.logger.Info("Registered user", zap.String("username", username))
	}
	return created, nil
}

// FindUser returns the user or nil when absent
func (t *Tx) FindUser(ctx context.Context, username string) (*User, error) {
	if username == "" {
		return nil, nil
	}
	n, err := t.tx.FindOne(ctx, UserRef(username))
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return userFromNode(n), nil
}

// UserExists reports whether username is registered
func (t *Tx) UserExists(ctx context.Context, username string) (bool, error) {
	u, err := t.FindUser(ctx, username)
	return u != nil, err
}

// SetBio replaces the user's bio
func (t *Tx) SetBio(ctx context.Context, username, bio string) error {
	return t.setUserProp(ctx, username, propBio, bio)
}

// SetPasswordHash replaces the user's password hash
func (t *Tx) SetPasswordHash(ctx context.Context, username, hash string) error {
	return t.setUserProp(ctx, username, propPasswordHash, hash)
}

// SetAvatar replaces the user's avatar reference
func (t *Tx) SetAvatar(ctx context.Context, username, ref string) error {
	return t.setUserProp(ctx, username, propAvatarRef, ref)
}

func (t *Tx) setUserProp(ctx context.Context, username, prop, value string) error {
	found, err := t.tx.SetProps(ctx, UserRef(username), store.Props{prop: value})
	if err != nil {
		return fmt.Errorf("failed to update user %s: %w", prop, err)
	}
	if err := mustExist(found, constants.LabelUser, username); err != nil {
		return err
	}
	t.repo.logger.Info("Updated user profile",
		zap.String("username", username),
		zap.String("field", prop),
	)
	return nil
}

// IncrementUserUpvotes adds one to the user's upvote counter
func (t *Tx) IncrementUserUpvotes(ctx context.Context, username string) error {
	found, err := t.tx.Increment(ctx, UserRef(username), propUpvoteCount, 1)
	if err != nil {
		return fmt.Errorf("failed to increment user upvotes: %w", err)
	}
	return mustExist(found, constants.LabelUser, username)
}

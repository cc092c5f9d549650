package graph

import (
	"context"
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"askgraph/backend/internal/clock"
	"askgraph/backend/internal/constants"
	"askgraph/backend/internal/store"
	"askgraph/backend/pkg/logger"
)

// Repository handles typed entity operations over a graph store
type Repository struct {
	store  store.Store
	clock  clock.Clock
	avatar func() string
	newID  func() string
	logger *zap.Logger
}

// Option customizes a Repository
type Option func(*Repository)

// WithAvatarPicker overrides the default-avatar choice for new users
func WithAvatarPicker(pick func() string) Option {
	return func(r *Repository) { r.avatar = pick }
}

// WithIDGenerator overrides question/answer id generation
func WithIDGenerator(gen func() string) Option {
	return func(r *Repository) { r.newID = gen }
}

// NewRepository creates a new graph repository
func NewRepository(s store.Store, c clock.Clock, opts ...Option) *Repository {
	r := &Repository{
		store:  s,
		clock:  c,
		avatar: randomAvatar,
		newID:  newUUID,
		logger: logger.Named("graph"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Clock returns the clock used for timestamps
func (r *Repository) Clock() clock.Clock { return r.clock }

// Store returns the underlying store
func (r *Repository) Store() store.Store { return r.store }

// View runs fn inside a read-only transaction
func (r *Repository) View(ctx context.Context, fn func(tx *Tx) error) error {
	return r.store.View(ctx, func(stx store.Tx) error {
		return fn(r.wrap(stx))
	})
}

// Update runs fn inside a read-write transaction; nothing is committed unless fn succeeds
func (r *Repository) Update(ctx context.Context, fn func(tx *Tx) error) error {
	return r.store.Update(ctx, func(stx store.Tx) error {
		return fn(r.wrap(stx))
	})
}

func (r *Repository) wrap(stx store.Tx) *Tx {
	return &Tx{tx: stx, repo: r}
}

// Tx exposes typed entity operations inside a store transaction
type Tx struct {
	tx   store.Tx
	repo *Repository
}

// Raw returns the underlying store transaction
func (t *Tx) Raw() store.Tx { return t.tx }

// EnsureSchema creates one uniqueness constraint per node label so that
// concurrent find-or-create calls are resolved by the store.
func (r *Repository) EnsureSchema(ctx context.Context, q store.Querier) error {
	for _, label := range []string{constants.LabelUser, constants.LabelQuestion, constants.LabelAnswer, constants.LabelTag} {
		key := UniqueKeys[label]
		query := fmt.Sprintf(
			"CREATE CONSTRAINT %s_%s_unique IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS UNIQUE",
			lowerFirst(label), key, label, key,
		)
		if _, err := q.Query(ctx, query, nil); err != nil {
			return fmt.Errorf("failed to create %s constraint: %w", label, err)
		}
		r.logger.Info("Ensured uniqueness constraint",
			zap.String("label", label),
			zap.String("key", key),
		)
	}

	// today's feed filters on created_date
	query := fmt.Sprintf(
		"CREATE INDEX question_created_date IF NOT EXISTS FOR (n:%s) ON (n.%s)",
		constants.LabelQuestion, propCreatedDate,
	)
	if _, err := q.Query(ctx, query, nil); err != nil {
		return fmt.Errorf("failed to create created_date index: %w", err)
	}
	return nil
}

// ============================================================================
// Single-transaction convenience wrappers
// ============================================================================

// RegisterUser creates a user; returns false when the username is taken
func (r *Repository) RegisterUser(ctx context.Context, username, passwordHash string) (bool, error) {
	var created bool
	err := r.Update(ctx, func(tx *Tx) error {
		var err error
		created, err = tx.RegisterUser(ctx, username, passwordHash)
		return err
	})
	return created, err
}

// FindUser returns the user or nil
func (r *Repository) FindUser(ctx context.Context, username string) (*User, error) {
	var user *User
	err := r.View(ctx, func(tx *Tx) error {
		var err error
		user, err = tx.FindUser(ctx, username)
		return err
	})
	return user, err
}

// FindQuestion returns the question or nil
func (r *Repository) FindQuestion(ctx context.Context, id string) (*Question, error) {
	var q *Question
	err := r.View(ctx, func(tx *Tx) error {
		var err error
		q, err = tx.FindQuestion(ctx, id)
		return err
	})
	return q, err
}

// FindAnswer returns the answer or nil
func (r *Repository) FindAnswer(ctx context.Context, id string) (*Answer, error) {
	var a *Answer
	err := r.View(ctx, func(tx *Tx) error {
		var err error
		a, err = tx.FindAnswer(ctx, id)
		return err
	})
	return a, err
}

// SetTags links every tag in tags to owner
func (r *Repository) SetTags(ctx context.Context, owner store.Ref, tags TagSet) error {
	return r.Update(ctx, func(tx *Tx) error {
		return tx.SetTags(ctx, owner, tags)
	})
}

// ClearTags removes every tag link of owner
func (r *Repository) ClearTags(ctx context.Context, owner store.Ref) error {
	return r.Update(ctx, func(tx *Tx) error {
		_, err := tx.ClearTags(ctx, owner)
		return err
	})
}

// PublishQuestion stores a question with its publisher and tags
func (r *Repository) PublishQuestion(ctx context.Context, author, title, text string, tags TagSet) (*Question, error) {
	var q *Question
	err := r.Update(ctx, func(tx *Tx) error {
		var err error
		q, err = tx.PublishQuestion(ctx, author, title, text, tags)
		return err
	})
	return q, err
}

// PublishAnswer stores an answer and bumps its question's update time
func (r *Repository) PublishAnswer(ctx context.Context, author, questionID, text string) (*Answer, error) {
	var a *Answer
	err := r.Update(ctx, func(tx *Tx) error {
		var err error
		a, err = tx.PublishAnswer(ctx, author, questionID, text)
		return err
	})
	return a, err
}

// TouchQuestionUpdateTime sets the question's updated_* fields to now
func (r *Repository) TouchQuestionUpdateTime(ctx context.Context, id string) error {
	return r.Update(ctx, func(tx *Tx) error {
		return tx.TouchQuestionUpdateTime(ctx, id)
	})
}

func randomAvatar() string {
	return fmt.Sprintf("default%d.jpg", rand.IntN(constants.DefaultAvatarCount))
}

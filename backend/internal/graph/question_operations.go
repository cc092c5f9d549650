package graph

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"askgraph/backend/internal/clock"
	"askgraph/backend/internal/constants"
	"askgraph/backend/internal/store"
	apperrors "askgraph/backend/pkg/errors"
)

// ============================================================================
// Question Operations
// ============================================================================

// PublishQuestion creates a question, its PUBLISHED edge and its tag edges.
// The author must exist and tags must be non-empty.
func (t *Tx) PublishQuestion(ctx context.Context, author, title, text string, tags TagSet) (*Question, error) {
	if tags.Len() == 0 {
		return nil, apperrors.NewValidation("tags", "a question needs at least one tag")
	}
	exists, err := t.UserExists(ctx, author)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.NewNotFound(constants.LabelUser, author)
	}

	at, date := clock.Stamp(t.repo.clock)
	q := &Question{
		ID:          t.repo.newID(),
		Title:       title,
		Text:        text,
		CreatedAt:   at,
		CreatedDate: date,
		UpdatedAt:   at,
		UpdatedDate: date,
	}
	ref := QuestionRef(q.ID)
	if _, err := t.tx.UpsertNode(ctx, ref, store.Props{
		propTitle:       q.Title,
		propText:        q.Text,
		propCreatedAt:   q.CreatedAt,
		propCreatedDate: q.CreatedDate,
		propUpdatedAt:   q.UpdatedAt,
		propUpdatedDate: q.UpdatedDate,
		propUpvoteCount: int64(0),
	}); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}
	if _, err := t.tx.CreateRelationship(ctx, UserRef(author), constants.RelPublished, ref, nil); err != nil {
		return nil, fmt.Errorf("failed to link question publisher: %w", err)
	}
	if err := t.SetTags(ctx, ref, tags); err != nil {
		return nil, err
	}

	t.repo.logger.Info("Published question",
		zap.String("question_id", q.ID),
		zap.String("author", author),
		zap.String("tags", tags.String()),
	)
	return q, nil
}

// FindQuestion returns the question or nil when absent
func (t *Tx) FindQuestion(ctx context.Context, id string) (*Question, error) {
	if id == "" {
		return nil, nil
	}
	n, err := t.tx.FindOne(ctx, QuestionRef(id))
	if err != nil {
		return nil, fmt.Errorf("failed to find question: %w", err)
	}
	return questionFromNode(n), nil
}

// TouchQuestionUpdateTime marks the question as active now
func (t *Tx) TouchQuestionUpdateTime(ctx context.Context, id string) error {
	at, date := clock.Stamp(t.repo.clock)
	found, err := t.tx.SetProps(ctx, QuestionRef(id), store.Props{
		propUpdatedAt:   at,
		propUpdatedDate: date,
	})
	if err != nil {
		return fmt.Errorf("failed to touch question: %w", err)
	}
	return mustExist(found, constants.LabelQuestion, id)
}

// IncrementQuestionUpvotes adds one to the question's upvote counter
func (t *Tx) IncrementQuestionUpvotes(ctx context.Context, id string) error {
	found, err := t.tx.Increment(ctx, QuestionRef(id), propUpvoteCount, 1)
	if err != nil {
		return fmt.Errorf("failed to increment question upvotes: %w", err)
	}
	return mustExist(found, constants.LabelQuestion, id)
}

// QuestionAuthor returns the username that published the question, or ""
func (t *Tx) QuestionAuthor(ctx context.Context, id string) (string, error) {
	nodes, err := t.tx.Related(ctx, QuestionRef(id), constants.RelPublished, store.Incoming, constants.LabelUser)
	if err != nil {
		return "", fmt.Errorf("failed to resolve question author: %w", err)
	}
	if n := first(nodes); n != nil {
		return n.Props.String(propUsername), nil
	}
	return "", nil
}

// IsPublishedBy reports whether username has a PUBLISHED edge to the question
func (t *Tx) IsPublishedBy(ctx context.Context, id, username string) (bool, error) {
	ok, err := t.tx.HasRelationship(ctx, UserRef(username), constants.RelPublished, QuestionRef(id))
	if err != nil {
		return false, fmt.Errorf("failed to check publisher: %w", err)
	}
	return ok, nil
}

// QuestionTags returns the question's tags
func (t *Tx) QuestionTags(ctx context.Context, id string) (TagSet, error) {
	nodes, err := t.tx.Related(ctx, QuestionRef(id), constants.RelTagged, store.Incoming, constants.LabelTag)
	if err != nil {
		return nil, fmt.Errorf("failed to load question tags: %w", err)
	}
	return NewTagSet(namesFromNodes(nodes, propName)...), nil
}

// QuestionsBy returns every question published by username
func (t *Tx) QuestionsBy(ctx context.Context, username string) ([]Question, error) {
	nodes, err := t.tx.Related(ctx, UserRef(username), constants.RelPublished, store.Outgoing, constants.LabelQuestion)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions by %s: %w", username, err)
	}
	return questionsFromNodes(nodes), nil
}

// QuestionsTagged returns every question carrying tag
func (t *Tx) QuestionsTagged(ctx context.Context, tag string) ([]Question, error) {
	nodes, err := t.tx.Related(ctx, TagRef(tag), constants.RelTagged, store.Outgoing, constants.LabelQuestion)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions tagged %s: %w", tag, err)
	}
	return questionsFromNodes(nodes), nil
}

// BookmarkedBy returns the questions username has bookmarked
func (t *Tx) BookmarkedBy(ctx context.Context, username string) ([]Question, error) {
	nodes, err := t.tx.Related(ctx, UserRef(username), constants.RelBookmark, store.Outgoing, constants.LabelQuestion)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookmarks: %w", err)
	}
	return questionsFromNodes(nodes), nil
}

// QuestionsOn returns every question created on date
func (t *Tx) QuestionsOn(ctx context.Context, date string) ([]Question, error) {
	nodes, err := t.tx.FindBy(ctx, constants.LabelQuestion, propCreatedDate, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions for %s: %w", date, err)
	}
	return questionsFromNodes(nodes), nil
}

// HasBookmarked reports whether username bookmarked the question
func (t *Tx) HasBookmarked(ctx context.Context, username, questionID string) (bool, error) {
	ok, err := t.tx.HasRelationship(ctx, UserRef(username), constants.RelBookmark, QuestionRef(questionID))
	if err != nil {
		return false, fmt.Errorf("failed to check bookmark: %w", err)
	}
	return ok, nil
}

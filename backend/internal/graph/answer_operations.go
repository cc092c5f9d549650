package graph

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"askgraph/backend/internal/clock"
	"askgraph/backend/internal/constants"
	"askgraph/backend/internal/store"
	apperrors "askgraph/backend/pkg/errors"
)

// ============================================================================
// Answer Operations
// ============================================================================

// PublishAnswer creates an answer with its PUBLISHED and ANSWERED edges and
// bumps the question's update time.
func (t *Tx) PublishAnswer(ctx context.Context, author, questionID, text string) (*Answer, error) {
	exists, err := t.UserExists(ctx, author)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.NewNotFound(constants.LabelUser, author)
	}
	q, err := t.FindQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, apperrors.NewNotFound(constants.LabelQuestion, questionID)
	}

	at, date := clock.Stamp(t.repo.clock)
	a := &Answer{
		ID:          t.repo.newID(),
		Text:        text,
		CreatedAt:   at,
		CreatedDate: date,
	}
	ref := AnswerRef(a.ID)
	if _, err := t.tx.UpsertNode(ctx, ref, store.Props{
		propText:        a.Text,
		propCreatedAt:   a.CreatedAt,
		propCreatedDate: a.CreatedDate,
	}); err != nil {
		return nil, fmt.Errorf("failed to create answer: %w", err)
	}
	if _, err := t.tx.CreateRelationship(ctx, UserRef(author), constants.RelPublished, ref, nil); err != nil {
		return nil, fmt.Errorf("failed to link answer publisher: %w", err)
	}
	if _, err := t.tx.CreateRelationship(ctx, ref, constants.RelAnswered, QuestionRef(questionID), nil); err != nil {
		return nil, fmt.Errorf("failed to link answer to question: %w", err)
	}
	if err := t.TouchQuestionUpdateTime(ctx, questionID); err != nil {
		return nil, err
	}

	t.repo.logger.Info("Published answer",
		zap.String("answer_id", a.ID),
		zap.String("question_id", questionID),
		zap.String("author", author),
	)
	return a, nil
}

// FindAnswer returns the answer or nil when absent
func (t *Tx) FindAnswer(ctx context.Context, id string) (*Answer, error) {
	if id == "" {
		return nil, nil
	}
	n, err := t.tx.FindOne(ctx, AnswerRef(id))
	if err != nil {
		return nil, fmt.Errorf("failed to find answer: %w", err)
	}
	return answerFromNode(n), nil
}

// AnswerQuestion returns the id of the question the answer belongs to, or ""
func (t *Tx) AnswerQuestion(ctx context.Context, answerID string) (string, error) {
	nodes, err := t.tx.Related(ctx, AnswerRef(answerID), constants.RelAnswered, store.Outgoing, constants.LabelQuestion)
	if err != nil {
		return "", fmt.Errorf("failed to resolve answered question: %w", err)
	}
	if n := first(nodes); n != nil {
		return n.Props.String(propID), nil
	}
	return "", nil
}

// AnswerAuthor returns the username that published the answer, or ""
func (t *Tx) AnswerAuthor(ctx context.Context, answerID string) (string, error) {
	nodes, err := t.tx.Related(ctx, AnswerRef(answerID), constants.RelPublished, store.Incoming, constants.LabelUser)
	if err != nil {
		return "", fmt.Errorf("failed to resolve answer author: %w", err)
	}
	if n := first(nodes); n != nil {
		return n.Props.String(propUsername), nil
	}
	return "", nil
}

// AnswersTo returns the question's answers, oldest first
func (t *Tx) AnswersTo(ctx context.Context, questionID string) ([]Answer, error) {
	nodes, err := t.tx.Related(ctx, QuestionRef(questionID), constants.RelAnswered, store.Incoming, constants.LabelAnswer)
	if err != nil {
		return nil, fmt.Errorf("failed to load answers: %w", err)
	}
	answers := make([]Answer, 0, len(nodes))
	for _, n := range nodes {
		answers = append(answers, *answerFromNode(n))
	}
	sort.SliceStable(answers, func(i, j int) bool {
		if answers[i].CreatedAt != answers[j].CreatedAt {
			return answers[i].CreatedAt < answers[j].CreatedAt
		}
		return answers[i].ID < answers[j].ID
	})
	return answers, nil
}

// AnswerUpvoters returns the usernames that upvoted the answer
func (t *Tx) AnswerUpvoters(ctx context.Context, answerID string) ([]string, error) {
	nodes, err := t.tx.Related(ctx, AnswerRef(answerID), constants.RelUpvote, store.Incoming, constants.LabelUser)
	if err != nil {
		return nil, fmt.Errorf("failed to load upvoters: %w", err)
	}
	return namesFromNodes(nodes, propUsername), nil
}

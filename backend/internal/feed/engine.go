// Package feed computes personalized and global question feeds by explicit
// traversal of the social graph.
package feed

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"askgraph/backend/internal/clock"
	"askgraph/backend/internal/constants"
	"askgraph/backend/internal/graph"
	"askgraph/backend/pkg/logger"
)

// Engine answers feed and recommendation reads
type Engine struct {
	repo   *graph.Repository
	logger *zap.Logger
}

// NewEngine creates a feed engine over repo
func NewEngine(repo *graph.Repository) *Engine {
	return &Engine{
		repo:   repo,
		logger: logger.Named("feed"),
	}
}

func observe(feed string, start time.Time) {
	buildDuration.WithLabelValues(feed).Observe(time.Since(start).Seconds())
}

// RecentQuestions returns the questions username published most recently,
// ordered by creation date then timestamp, newest first.
func (e *Engine) RecentQuestions(ctx context.Context, username string, limit int) ([]Item, error) {
	defer observe("recent", time.Now())
	if limit <= 0 {
		limit = constants.RecentQuestionsLimit
	}

	items := []Item{}
	err := e.repo.View(ctx, func(tx *graph.Tx) error {
		questions, err := tx.QuestionsBy(ctx, username)
		if err != nil {
			return err
		}
		sort.SliceStable(questions, func(i, j int) bool {
			a, b := questions[i], questions[j]
			if a.CreatedDate != b.CreatedDate {
				return a.CreatedDate > b.CreatedDate
			}
			if a.CreatedAt != b.CreatedAt {
				return a.CreatedAt > b.CreatedAt
			}
			return a.ID < b.ID
		})
		if len(questions) > limit {
			questions = questions[:limit]
		}
		for _, q := range questions {
			tags, err := tx.QuestionTags(ctx, q.ID)
			if err != nil {
				return err
			}
			items = append(items, Item{Author: username, Question: q, Tags: tags.Sorted()})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Bookmarks returns every question username bookmarked with its original
// publisher, newest first.
func (e *Engine) Bookmarks(ctx context.Context, username string) ([]Item, error) {
	defer observe("bookmarks", time.Now())

	var items []Item
	err := e.repo.View(ctx, func(tx *graph.Tx) error {
		questions, err := tx.BookmarkedBy(ctx, username)
		if err != nil {
			return err
		}
		items, err = withAuthors(ctx, tx, questions)
		return err
	})
	if err != nil {
		return nil, err
	}
	sortByCreatedDesc(items)
	return items, nil
}

// TodaysRecentQuestions returns the questions created today, newest first
func (e *Engine) TodaysRecentQuestions(ctx context.Context, limit int) ([]Item, error) {
	defer observe("today", time.Now())
	if limit <= 0 {
		limit = constants.TodaysQuestionsLimit
	}
	today := clock.Today(e.repo.Clock())

	var items []Item
	err := e.repo.View(ctx, func(tx *graph.Tx) error {
		questions, err := tx.QuestionsOn(ctx, today)
		if err != nil {
			return err
		}
		items, err = withAuthors(ctx, tx, questions)
		return err
	})
	if err != nil {
		return nil, err
	}
	sortByCreatedDesc(items)
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// QuestionDetail returns zero or one item for the question id
func (e *Engine) QuestionDetail(ctx context.Context, id string) ([]Item, error) {
	items := []Item{}
	err := e.repo.View(ctx, func(tx *graph.Tx) error {
		q, err := tx.FindQuestion(ctx, id)
		if err != nil || q == nil {
			return err
		}
		items, err = withAuthors(ctx, tx, []graph.Question{*q})
		return err
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// AnswersFor returns the question's answers with authors and upvote counts,
// oldest first. Unknown ids yield an empty slice.
func (e *Engine) AnswersFor(ctx context.Context, questionID string) ([]AnswerItem, error) {
	items := []AnswerItem{}
	err := e.repo.View(ctx, func(tx *graph.Tx) error {
		answers, err := tx.AnswersTo(ctx, questionID)
		if err != nil {
			return err
		}
		for _, a := range answers {
			author, err := tx.AnswerAuthor(ctx, a.ID)
			if err != nil {
				return err
			}
			voters, err := tx.AnswerUpvoters(ctx, a.ID)
			if err != nil {
				return err
			}
			items = append(items, AnswerItem{Author: author, Answer: a, Upvotes: len(voters)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// withAuthors pairs each question with its publisher and sorted tags.
// Questions without a publisher are dropped.
func withAuthors(ctx context.Context, tx *graph.Tx, questions []graph.Question) ([]Item, error) {
	items := make([]Item, 0, len(questions))
	for _, q := range questions {
		author, err := tx.QuestionAuthor(ctx, q.ID)
		if err != nil {
			return nil, err
		}
		if author == "" {
			continue
		}
		tags, err := tx.QuestionTags(ctx, q.ID)
		if err != nil {
			return nil, err
		}
		items = append(items, Item{Author: author, Question: q, Tags: tags.Sorted()})
	}
	return items, nil
}

func sortByCreatedDesc(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Question, items[j].Question
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt > b.CreatedAt
		}
		return a.ID < b.ID
	})
}

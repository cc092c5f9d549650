package feed

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"askgraph/backend/internal/constants"
	"askgraph/backend/internal/graph"
)

// ============================================================================
// Personalized feeds
//
// Timeline, Voteline and FollowingFeed share one pipeline:
//   social candidates (set A) and interest candidates (set B) are gathered
//   concurrently, unioned, filtered for a real PUBLISHED edge and self-authorship,
//   deduplicated by (author, question), sorted and truncated.
// ============================================================================

// Timeline returns questions from followed users and shared interests,
// most recently active first.
func (e *Engine) Timeline(ctx context.Context, viewer string) ([]Item, error) {
	return e.personalized(ctx, viewer, KindTimeline)
}

// Voteline returns the same candidates as Timeline ranked by upvotes
func (e *Engine) Voteline(ctx context.Context, viewer string) ([]Item, error) {
	return e.personalized(ctx, viewer, KindVoteline)
}

// FollowingFeed returns questions from users two follows away and from tags
// of directly followed users, ranked by upvotes.
func (e *Engine) FollowingFeed(ctx context.Context, viewer string) ([]Item, error) {
	return e.personalized(ctx, viewer, KindFollowing)
}

// Personalized dispatches on kind
func (e *Engine) Personalized(ctx context.Context, viewer string, kind Kind) ([]Item, error) {
	return e.personalized(ctx, viewer, kind)
}

// candidate is a question paired with the user it was discovered through
type candidate struct {
	question graph.Question
	// publisher is the user the traversal claims published the question; "" when unknown
	publisher string
	matched   graph.TagSet
}

type feedKey struct {
	author     string
	questionID string
}

func (e *Engine) personalized(ctx context.Context, viewer string, kind Kind) ([]Item, error) {
	defer observe(string(kind), time.Now())

	var social, interest []candidate
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		social, err = e.socialCandidates(gctx, viewer, kind.depth())
		return err
	})
	g.Go(func() error {
		var err error
		interest, err = e.interestCandidates(gctx, viewer, kind)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	union := append(social, interest...)
	candidateCount.WithLabelValues(string(kind)).Observe(float64(len(union)))

	var items []Item
	err := e.repo.View(ctx, func(tx *graph.Tx) error {
		var err error
		items, err = resolve(ctx, tx, viewer, union)
		return err
	})
	if err != nil {
		return nil, err
	}

	sortFeed(items, kind)
	if len(items) > constants.FeedLimit {
		items = items[:constants.FeedLimit]
	}
	e.logger.Debug("Built feed",
		zap.String("viewer", viewer),
		zap.String("feed", string(kind)),
		zap.Int("candidates", len(union)),
		zap.Int("items", len(items)),
	)
	return items, nil
}

// socialCandidates collects questions published by users exactly depth FOLLOW hops away
func (e *Engine) socialCandidates(ctx context.Context, viewer string, depth int) ([]candidate, error) {
	var out []candidate
	err := e.repo.View(ctx, func(tx *graph.Tx) error {
		frontier := []string{viewer}
		for hop := 0; hop < depth; hop++ {
			next := map[string]struct{}{}
			for _, u := range frontier {
				followees, err := tx.Followees(ctx, u)
				if err != nil {
					return err
				}
				for _, f := range followees {
					next[f] = struct{}{}
				}
			}
			frontier = sortedKeys(next)
		}
		for _, publisher := range frontier {
			questions, err := tx.QuestionsBy(ctx, publisher)
			if err != nil {
				return err
			}
			for _, q := range questions {
				out = append(out, candidate{question: q, publisher: publisher})
			}
		}
		return nil
	})
	return out, err
}

// interestCandidates collects questions tagged with the viewer's interests, or
// for the following feed, with the interests of directly followed users.
func (e *Engine) interestCandidates(ctx context.Context, viewer string, kind Kind) ([]candidate, error) {
	var out []candidate
	err := e.repo.View(ctx, func(tx *graph.Tx) error {
		sources := []string{viewer}
		if kind == KindFollowing {
			followees, err := tx.Followees(ctx, viewer)
			if err != nil {
				return err
			}
			sources = followees
		}

		interests := graph.TagSet{}
		for _, u := range sources {
			tags, err := tx.InterestTags(ctx, u)
			if err != nil {
				return err
			}
			for name := range tags {
				interests.Add(name)
			}
		}

		for _, tag := range interests.Sorted() {
			questions, err := tx.QuestionsTagged(ctx, tag)
			if err != nil {
				return err
			}
			for _, q := range questions {
				out = append(out, candidate{question: q, matched: graph.NewTagSet(tag)})
			}
		}
		return nil
	})
	return out, err
}

// resolve pairs candidates with publishers and tags, applies the validity
// filter and collapses duplicates into one row per (author, question).
// Questions are re-read in tx so sort keys, authorship and tags all come
// from one snapshot.
func resolve(ctx context.Context, tx *graph.Tx, viewer string, union []candidate) ([]Item, error) {
	rows := map[feedKey]*Item{}
	tagSets := map[feedKey]graph.TagSet{}
	fullTags := map[string]graph.TagSet{}
	current := map[string]*graph.Question{}

	for _, c := range union {
		q, seen := current[c.question.ID]
		if !seen {
			var err error
			q, err = tx.FindQuestion(ctx, c.question.ID)
			if err != nil {
				return nil, err
			}
			current[c.question.ID] = q
		}
		if q == nil {
			continue
		}

		publisher := c.publisher
		if publisher == "" {
			author, err := tx.QuestionAuthor(ctx, c.question.ID)
			if err != nil {
				return nil, err
			}
			publisher = author
		}
		if publisher == "" || publisher == viewer {
			continue
		}
		ok, err := tx.IsPublishedBy(ctx, c.question.ID, publisher)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		tags, seen := fullTags[c.question.ID]
		if !seen {
			tags, err = tx.QuestionTags(ctx, c.question.ID)
			if err != nil {
				return nil, err
			}
			fullTags[c.question.ID] = tags
		}

		key := feedKey{author: publisher, questionID: c.question.ID}
		if _, ok := rows[key]; !ok {
			rows[key] = &Item{Author: publisher, Question: *q}
			tagSets[key] = graph.TagSet{}
		}
		merged := tagSets[key]
		for name := range tags {
			merged.Add(name)
		}
		for name := range c.matched {
			merged.Add(name)
		}
	}

	items := make([]Item, 0, len(rows))
	for key, row := range rows {
		row.Tags = tagSets[key].Sorted()
		items = append(items, *row)
	}
	return items, nil
}

func sortFeed(items []Item, kind Kind) {
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i].Question, items[j].Question
		if kind == KindTimeline {
			if a.UpdatedDate != b.UpdatedDate {
				return a.UpdatedDate > b.UpdatedDate
			}
		} else if a.UpvoteCount != b.UpvoteCount {
			return a.UpvoteCount > b.UpvoteCount
		}
		if a.UpdatedAt != b.UpdatedAt {
			return a.UpdatedAt > b.UpdatedAt
		}
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		return items[i].Author < items[j].Author
	})
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

package feed

import (
	"context"
	"sort"
	"time"

	"askgraph/backend/internal/constants"
	"askgraph/backend/internal/graph"
)

// ============================================================================
// Similarity & recommendation
// ============================================================================

// publishedTags returns the union of tags across every question username published
func publishedTags(ctx context.Context, tx *graph.Tx, username string) (graph.TagSet, error) {
	questions, err := tx.QuestionsBy(ctx, username)
	if err != nil {
		return nil, err
	}
	out := graph.TagSet{}
	for _, q := range questions {
		tags, err := tx.QuestionTags(ctx, q.ID)
		if err != nil {
			return nil, err
		}
		for name := range tags {
			out.Add(name)
		}
	}
	return out, nil
}

// SimilarUsers ranks other publishers by how many distinct tags their
// questions share with the viewer's questions.
func (e *Engine) SimilarUsers(ctx context.Context, viewer string, limit int) ([]SimilarUser, error) {
	defer observe("similar", time.Now())
	if limit <= 0 {
		limit = constants.SimilarUsersLimit
	}

	shared := map[string]graph.TagSet{}
	err := e.repo.View(ctx, func(tx *graph.Tx) error {
		mine, err := publishedTags(ctx, tx, viewer)
		if err != nil {
			return err
		}
		for _, tag := range mine.Sorted() {
			questions, err := tx.QuestionsTagged(ctx, tag)
			if err != nil {
				return err
			}
			for _, q := range questions {
				author, err := tx.QuestionAuthor(ctx, q.ID)
				if err != nil {
					return err
				}
				if author == "" || author == viewer {
					continue
				}
				if shared[author] == nil {
					shared[author] = graph.TagSet{}
				}
				shared[author].Add(tag)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]SimilarUser, 0, len(shared))
	for user, tags := range shared {
		out = append(out, SimilarUser{Username: user, SharedTags: tags.Sorted()})
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].SharedTags) != len(out[j].SharedTags) {
			return len(out[i].SharedTags) > len(out[j].SharedTags)
		}
		return out[i].Username < out[j].Username
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Commonality reports how many of the viewer's questions other likes and which
// tags both users have published under. Liking a question means bookmarking it,
// so LikeCount counts BOOKMARK edges from other to the viewer's questions.
// Unknown users yield a zero value.
func (e *Engine) Commonality(ctx context.Context, viewer, other string) (Commonality, error) {
	result := Commonality{SharedTags: []string{}}
	if viewer == "" || other == "" {
		return result, nil
	}
	err := e.repo.View(ctx, func(tx *graph.Tx) error {
		mine, err := tx.QuestionsBy(ctx, viewer)
		if err != nil {
			return err
		}
		for _, q := range mine {
			ok, err := tx.HasBookmarked(ctx, other, q.ID)
			if err != nil {
				return err
			}
			if ok {
				result.LikeCount++
			}
		}

		viewerTags, err := publishedTags(ctx, tx, viewer)
		if err != nil {
			return err
		}
		otherTags, err := publishedTags(ctx, tx, other)
		if err != nil {
			return err
		}
		result.SharedTags = viewerTags.Intersect(otherTags).Sorted()
		return nil
	})
	if err != nil {
		return Commonality{}, err
	}
	return result, nil
}

// SuggestFollows returns users followed by the viewer's followees that the
// viewer does not follow yet, most upvoted first.
func (e *Engine) SuggestFollows(ctx context.Context, viewer string, limit int) ([]Suggestion, error) {
	defer observe("suggest", time.Now())

	out := []Suggestion{}
	err := e.repo.View(ctx, func(tx *graph.Tx) error {
		followees, err := tx.Followees(ctx, viewer)
		if err != nil {
			return err
		}
		following := map[string]struct{}{viewer: {}}
		for _, f := range followees {
			following[f] = struct{}{}
		}

		via := map[string][]string{}
		for _, f := range followees {
			theirs, err := tx.Followees(ctx, f)
			if err != nil {
				return err
			}
			for _, candidate := range theirs {
				if _, skip := following[candidate]; skip {
					continue
				}
				via[candidate] = append(via[candidate], f)
			}
		}

		for name, through := range via {
			u, err := tx.FindUser(ctx, name)
			if err != nil {
				return err
			}
			if u == nil {
				continue
			}
			sort.Strings(through)
			out = append(out, Suggestion{Username: name, UpvoteCount: u.UpvoteCount, Via: through})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpvoteCount != out[j].UpvoteCount {
			return out[i].UpvoteCount > out[j].UpvoteCount
		}
		return out[i].Username < out[j].Username
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

package feed

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askgraph/backend/internal/clock"
	"askgraph/backend/internal/graph"
	"askgraph/backend/internal/store"
	apperrors "askgraph/backend/pkg/errors"
)

type fixture struct {
	t      *testing.T
	ctx    context.Context
	repo   *graph.Repository
	clock  *clock.Manual
	engine *Engine
}

func newFixture(t *testing.T, users ...string) *fixture {
	t.Helper()
	s, err := store.NewBadgerInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	seq := 0
	c := clock.NewManual(time.Date(2024, 3, 9, 8, 0, 0, 0, time.UTC))
	repo := graph.NewRepository(s, c, graph.WithIDGenerator(func() string {
		seq++
		return fmt.Sprintf("n%03d", seq)
	}))
	f := &fixture{t: t, ctx: context.Background(), repo: repo, clock: c, engine: NewEngine(repo)}
	for _, u := range users {
		_, err := repo.RegisterUser(f.ctx, u, "hash")
		require.NoError(t, err)
	}
	return f
}

func (f *fixture) ask(author, title, tags string) string {
	f.t.Helper()
	f.clock.Advance(time.Minute)
	q, err := f.repo.PublishQuestion(f.ctx, author, title, "body", graph.ParseTags(tags))
	require.NoError(f.t, err)
	return q.ID
}

func (f *fixture) answer(author, questionID string) string {
	f.t.Helper()
	f.clock.Advance(time.Minute)
	a, err := f.repo.PublishAnswer(f.ctx, author, questionID, "answer")
	require.NoError(f.t, err)
	return a.ID
}

func (f *fixture) follow(from, to string) {
	f.t.Helper()
	require.NoError(f.t, f.repo.Update(f.ctx, func(tx *graph.Tx) error {
		_, err := tx.Follow(f.ctx, from, to)
		return err
	}))
}

func (f *fixture) interests(user, tags string) {
	f.t.Helper()
	require.NoError(f.t, f.repo.SetTags(f.ctx, graph.UserRef(user), graph.ParseTags(tags)))
}

func (f *fixture) votes(questionID string, n int) {
	f.t.Helper()
	require.NoError(f.t, f.repo.Update(f.ctx, func(tx *graph.Tx) error {
		for i := 0; i < n; i++ {
			if err := tx.IncrementQuestionUpvotes(f.ctx, questionID); err != nil {
				return err
			}
		}
		return nil
	}))
}

func (f *fixture) bookmark(user, questionID string) {
	f.t.Helper()
	require.NoError(f.t, f.repo.Update(f.ctx, func(tx *graph.Tx) error {
		_, err := tx.Bookmark(f.ctx, user, questionID)
		return err
	}))
}

func titles(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Question.Title)
	}
	return out
}

func TestRecentQuestions_TruncatesToMostRecent(t *testing.T) {
	f := newFixture(t, "ada")
	for i := 0; i < 20; i++ {
		if i == 10 {
			f.clock.Advance(24 * time.Hour)
		}
		f.ask("ada", fmt.Sprintf("q%02d", i), "go")
	}

	items, err := f.engine.RecentQuestions(f.ctx, "ada", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"q19", "q18", "q17", "q16", "q15"}, titles(items))
	for _, it := range items {
		assert.Equal(t, "ada", it.Author)
		assert.Equal(t, []string{"go"}, it.Tags)
	}

	none, err := f.engine.RecentQuestions(f.ctx, "ghost", 5)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestTimeline_DeduplicatesAcrossTags(t *testing.T) {
	f := newFixture(t, "viewer", "bob")
	f.interests("viewer", "go rust")
	f.ask("bob", "Go or Rust?", "go rust")

	items, err := f.engine.Timeline(f.ctx, "viewer")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "bob", items[0].Author)
	assert.Equal(t, []string{"go", "rust"}, items[0].Tags)

	// the same question reached through the follow graph still yields one row
	f.follow("viewer", "bob")
	for _, feed := range []func(context.Context, string) ([]Item, error){f.engine.Timeline, f.engine.Voteline} {
		items, err = feed(f.ctx, "viewer")
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, []string{"go", "rust"}, items[0].Tags)
	}
}

func TestTimeline_OrdersByLastActivity(t *testing.T) {
	f := newFixture(t, "viewer", "bob", "carol")
	f.follow("viewer", "bob")
	q1 := f.ask("bob", "first", "go")
	q2 := f.ask("bob", "second", "go")
	q3 := f.ask("bob", "third", "go")

	// activity order: q2 (next day), q1, q3
	f.answer("carol", q3)
	f.answer("carol", q1)
	f.clock.Advance(24 * time.Hour)
	f.answer("carol", q2)

	items, err := f.engine.Timeline(f.ctx, "viewer")
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first", "third"}, titles(items))
	assert.Equal(t, "2024-03-10", items[0].Question.UpdatedDate)
}

func TestVoteline_OrdersByUpvotes(t *testing.T) {
	f := newFixture(t, "viewer", "bob")
	f.follow("viewer", "bob")
	f.votes(f.ask("bob", "five", "go"), 5)
	f.votes(f.ask("bob", "ten", "go"), 10)
	f.votes(f.ask("bob", "three", "go"), 3)

	items, err := f.engine.Voteline(f.ctx, "viewer")
	require.NoError(t, err)
	assert.Equal(t, []string{"ten", "five", "three"}, titles(items))
	assert.Equal(t, int64(10), items[0].Question.UpvoteCount)
}

func TestPersonalized_ExcludesOwnQuestionsAndTruncates(t *testing.T) {
	f := newFixture(t, "viewer", "bob")
	f.interests("viewer", "go")
	f.ask("viewer", "mine", "go")
	for i := 0; i < 12; i++ {
		f.ask("bob", fmt.Sprintf("b%02d", i), "go")
	}

	items, err := f.engine.Timeline(f.ctx, "viewer")
	require.NoError(t, err)
	assert.Len(t, items, 10)
	assert.NotContains(t, titles(items), "mine")
	assert.Equal(t, "b11", items[0].Question.Title)
}

func TestFollowingFeed_TwoHops(t *testing.T) {
	f := newFixture(t, "viewer", "bob", "carol", "dave")
	f.follow("viewer", "bob")
	f.follow("bob", "carol")
	f.interests("bob", "art")

	f.ask("bob", "from bob", "misc")
	f.votes(f.ask("carol", "from carol", "misc"), 2)
	f.votes(f.ask("dave", "art by dave", "art"), 7)

	items, err := f.engine.FollowingFeed(f.ctx, "viewer")
	require.NoError(t, err)
	assert.Equal(t, []string{"art by dave", "from carol"}, titles(items))

	// depth one sees bob but not carol
	timeline, err := f.engine.Timeline(f.ctx, "viewer")
	require.NoError(t, err)
	assert.Equal(t, []string{"from bob"}, titles(timeline))
}

func TestPersonalized_UnknownViewerIsEmpty(t *testing.T) {
	f := newFixture(t)
	items, err := f.engine.FollowingFeed(f.ctx, "ghost")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestBookmarks_NewestFirstWithPublisher(t *testing.T) {
	f := newFixture(t, "viewer", "bob", "carol")
	old := f.ask("bob", "old", "go")
	recent := f.ask("carol", "recent", "go")
	f.bookmark("viewer", old)
	f.bookmark("viewer", recent)
	f.bookmark("viewer", recent)

	items, err := f.engine.Bookmarks(f.ctx, "viewer")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "recent", items[0].Question.Title)
	assert.Equal(t, "carol", items[0].Author)
	assert.Equal(t, "bob", items[1].Author)
}

func TestTodaysRecentQuestions(t *testing.T) {
	f := newFixture(t, "ada")
	f.ask("ada", "yesterday", "go")
	f.clock.Advance(24 * time.Hour)
	for i := 0; i < 6; i++ {
		f.ask("ada", fmt.Sprintf("today%d", i), "go")
	}

	items, err := f.engine.TodaysRecentQuestions(f.ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"today5", "today4", "today3", "today2", "today1"}, titles(items))
}

func TestQuestionDetailAndAnswers(t *testing.T) {
	f := newFixture(t, "ada", "bob", "carol")
	q := f.ask("ada", "detail", "Go Lang")
	a1 := f.answer("bob", q)
	f.answer("carol", q)
	require.NoError(t, f.repo.Update(f.ctx, func(tx *graph.Tx) error {
		_, err := tx.Upvote(f.ctx, "ada", a1)
		return err
	}))

	detail, err := f.engine.QuestionDetail(f.ctx, q)
	require.NoError(t, err)
	require.Len(t, detail, 1)
	assert.Equal(t, "ada", detail[0].Author)
	assert.Equal(t, []string{"go", "lang"}, detail[0].Tags)

	answers, err := f.engine.AnswersFor(f.ctx, q)
	require.NoError(t, err)
	require.Len(t, answers, 2)
	assert.Equal(t, "bob", answers[0].Author)
	assert.Equal(t, 1, answers[0].Upvotes)
	assert.Equal(t, "carol", answers[1].Author)
	assert.Zero(t, answers[1].Upvotes)

	missing, err := f.engine.QuestionDetail(f.ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, missing)

	noAnswers, err := f.engine.AnswersFor(f.ctx, "unknown")
	require.NoError(t, err)
	assert.NotNil(t, noAnswers)
	assert.Empty(t, noAnswers)
}

func TestResolve_ReadsQuestionsFromItsOwnSnapshot(t *testing.T) {
	f := newFixture(t, "viewer", "bob")
	id := f.ask("bob", "Stale?", "go")
	stale, err := f.repo.FindQuestion(f.ctx, id)
	require.NoError(t, err)

	f.votes(id, 3)
	f.answer("viewer", id)

	var items []Item
	require.NoError(t, f.repo.View(f.ctx, func(tx *graph.Tx) error {
		var err error
		items, err = resolve(f.ctx, tx, "viewer", []candidate{
			{question: *stale, publisher: "bob"},
			{question: graph.Question{ID: "gone"}, publisher: "bob"},
		})
		return err
	}))

	fresh, err := f.repo.FindQuestion(f.ctx, id)
	require.NoError(t, err)
	require.Len(t, items, 1, "questions missing from the snapshot are dropped")
	assert.Equal(t, int64(3), items[0].Question.UpvoteCount)
	assert.Equal(t, fresh.UpdatedAt, items[0].Question.UpdatedAt)
	assert.NotEqual(t, stale.UpdatedAt, items[0].Question.UpdatedAt)
}

func TestEngine_PropagatesStoreUnavailable(t *testing.T) {
	f := newFixture(t, "viewer", "bob")
	f.interests("viewer", "go")
	f.follow("viewer", "bob")
	f.ask("bob", "Why Go?", "go")
	require.NoError(t, f.repo.Store().Close(f.ctx))

	for name, feed := range map[string]func(context.Context, string) ([]Item, error){
		"timeline":  f.engine.Timeline,
		"voteline":  f.engine.Voteline,
		"following": f.engine.FollowingFeed,
		"bookmarks": f.engine.Bookmarks,
	} {
		items, err := feed(f.ctx, "viewer")
		assert.True(t, apperrors.IsStoreUnavailable(err), "%s: got %v", name, err)
		assert.Nil(t, items, name)
	}

	_, err := f.engine.Commonality(f.ctx, "viewer", "bob")
	assert.True(t, apperrors.IsStoreUnavailable(err), "got %v", err)

	_, err = f.engine.SimilarUsers(f.ctx, "viewer", 3)
	assert.True(t, apperrors.IsStoreUnavailable(err), "got %v", err)

	_, err = f.engine.RecentQuestions(f.ctx, "bob", 5)
	assert.True(t, apperrors.IsStoreUnavailable(err), "got %v", err)
}

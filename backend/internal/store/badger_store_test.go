package store

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "askgraph/backend/pkg/errors"
)

func newTestBadger(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := NewBadgerInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func userRef(name string) Ref { return NewRef("User", "username", name) }
func tagRef(name string) Ref  { return NewRef("Tag", "name", name) }
func questionRef(id string) Ref {
	return NewRef("Question", "id", id)
}

func TestBadger_UpsertNodeIsFindOrCreate(t *testing.T) {
	ctx := context.Background()
	s := newTestBadger(t)

	var first, second bool
	err := s.Update(ctx, func(tx Tx) error {
		var err error
		first, err = tx.UpsertNode(ctx, userRef("ada"), Props{"bio": "first"})
		if err != nil {
			return err
		}
		second, err = tx.UpsertNode(ctx, userRef("ada"), Props{"bio": "second"})
		return err
	})
	require.NoError(t, err)
	assert.True(t, first)
	assert.False(t, second)

	err = s.View(ctx, func(tx Tx) error {
		n, err := tx.FindOne(ctx, userRef("ada"))
		require.NoError(t, err)
		require.NotNil(t, n)
		assert.Equal(t, "User", n.Label)
		assert.Equal(t, "ada", n.Props.String("username"))
		assert.Equal(t, "first", n.Props.String("bio"))

		missing, err := tx.FindOne(ctx, userRef("nobody"))
		assert.NoError(t, err)
		assert.Nil(t, missing)
		return nil
	})
	require.NoError(t, err)
}

func TestBadger_IncrementAndSetProps(t *testing.T) {
	ctx := context.Background()
	s := newTestBadger(t)

	require.NoError(t, s.Update(ctx, func(tx Tx) error {
		_, err := tx.UpsertNode(ctx, questionRef("q1"), Props{"upvote_count": int64(4), "created_at": int64(1_700_000_000_123_456)})
		return err
	}))

	require.NoError(t, s.Update(ctx, func(tx Tx) error {
		found, err := tx.Increment(ctx, questionRef("q1"), "upvote_count", 1)
		require.NoError(t, err)
		assert.True(t, found)

		found, err = tx.Increment(ctx, questionRef("missing"), "upvote_count", 1)
		require.NoError(t, err)
		assert.False(t, found)

		found, err = tx.SetProps(ctx, questionRef("q1"), Props{"title": "Why?", "id": "ignored"})
		require.NoError(t, err)
		assert.True(t, found)
		return nil
	}))

	require.NoError(t, s.View(ctx, func(tx Tx) error {
		n, err := tx.FindOne(ctx, questionRef("q1"))
		require.NoError(t, err)
		assert.Equal(t, int64(5), n.Props.Int64("upvote_count"))
		assert.Equal(t, int64(1_700_000_000_123_456), n.Props.Int64("created_at"))
		assert.Equal(t, "Why?", n.Props.String("title"))
		assert.Equal(t, "q1", n.Props.String("id"))
		return nil
	}))
}

func TestBadger_RelationshipsAndTraversal(t *testing.T) {
	ctx := context.Background()
	s := newTestBadger(t)

	require.NoError(t, s.Update(ctx, func(tx Tx) error {
		for _, ref := range []Ref{userRef("ada"), userRef("bob"), tagRef("go"), questionRef("q1")} {
			if _, err := tx.UpsertNode(ctx, ref, nil); err != nil {
				return err
			}
		}
		created, err := tx.MergeRelationship(ctx, userRef("ada"), "FOLLOW", userRef("bob"))
		require.NoError(t, err)
		assert.True(t, created)

		created, err = tx.MergeRelationship(ctx, userRef("ada"), "FOLLOW", userRef("bob"))
		require.NoError(t, err)
		assert.False(t, created, "merge must not duplicate")

		created, err = tx.CreateRelationship(ctx, userRef("ada"), "FOLLOW", userRef("ghost"), nil)
		require.NoError(t, err)
		assert.False(t, created, "missing endpoint creates nothing")

		_, err = tx.CreateRelationship(ctx, tagRef("go"), "TAGGED", questionRef("q1"), nil)
		require.NoError(t, err)
		_, err = tx.CreateRelationship(ctx, tagRef("go"), "TAGGED", userRef("bob"), nil)
		return err
	}))

	require.NoError(t, s.View(ctx, func(tx Tx) error {
		ok, err := tx.HasRelationship(ctx, userRef("ada"), "FOLLOW", userRef("bob"))
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = tx.HasRelationship(ctx, userRef("bob"), "FOLLOW", userRef("ada"))
		require.NoError(t, err)
		assert.False(t, ok, "FOLLOW is directed")

		followers, err := tx.Related(ctx, userRef("bob"), "FOLLOW", Incoming, "User")
		require.NoError(t, err)
		require.Len(t, followers, 1)
		assert.Equal(t, "ada", followers[0].Props.String("username"))

		all, err := tx.Related(ctx, tagRef("go"), "TAGGED", Outgoing, "")
		require.NoError(t, err)
		assert.Len(t, all, 2)

		questions, err := tx.Related(ctx, tagRef("go"), "TAGGED", Outgoing, "Question")
		require.NoError(t, err)
		require.Len(t, questions, 1)
		assert.Equal(t, "q1", questions[0].Props.String("id"))
		return nil
	}))

	require.NoError(t, s.Update(ctx, func(tx Tx) error {
		n, err := tx.DeleteRelationships(ctx, userRef("bob"), "TAGGED", Incoming, "Tag")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		return nil
	}))

	require.NoError(t, s.View(ctx, func(tx Tx) error {
		tags, err := tx.Related(ctx, userRef("bob"), "TAGGED", Incoming, "Tag")
		require.NoError(t, err)
		assert.Empty(t, tags)

		rest, err := tx.Related(ctx, tagRef("go"), "TAGGED", Outgoing, "")
		require.NoError(t, err)
		assert.Len(t, rest, 1, "outgoing mirror must be removed too")
		return nil
	}))
}

func TestBadger_FindBy(t *testing.T) {
	ctx := context.Background()
	s := newTestBadger(t)

	require.NoError(t, s.Update(ctx, func(tx Tx) error {
		_, _ = tx.UpsertNode(ctx, questionRef("q1"), Props{"created_date": "2024-03-09", "upvote_count": int64(3)})
		_, _ = tx.UpsertNode(ctx, questionRef("q2"), Props{"created_date": "2024-03-10", "upvote_count": int64(3)})
		_, err := tx.UpsertNode(ctx, questionRef("q3"), Props{"created_date": "2024-03-09"})
		return err
	}))

	require.NoError(t, s.View(ctx, func(tx Tx) error {
		today, err := tx.FindBy(ctx, "Question", "created_date", "2024-03-09")
		require.NoError(t, err)
		assert.Len(t, today, 2)

		three, err := tx.FindBy(ctx, "Question", "upvote_count", 3)
		require.NoError(t, err)
		assert.Len(t, three, 2)

		none, err := tx.FindBy(ctx, "Answer", "created_date", "2024-03-09")
		require.NoError(t, err)
		assert.Empty(t, none)
		return nil
	}))
}

func TestBadger_UpdateRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := newTestBadger(t)
	boom := stderrors.New("boom")

	err := s.Update(ctx, func(tx Tx) error {
		if _, err := tx.UpsertNode(ctx, userRef("ada"), nil); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	require.NoError(t, s.View(ctx, func(tx Tx) error {
		n, err := tx.FindOne(ctx, userRef("ada"))
		require.NoError(t, err)
		assert.Nil(t, n, "aborted transaction must leave no trace")
		return nil
	}))
}

func TestBadger_ViewIsReadOnly(t *testing.T) {
	ctx := context.Background()
	s := newTestBadger(t)

	err := s.View(ctx, func(tx Tx) error {
		_, err := tx.UpsertNode(ctx, userRef("ada"), nil)
		return err
	})
	assert.True(t, apperrors.IsStoreUnavailable(err))
}

func TestBadger_RejectsInvalidRefs(t *testing.T) {
	ctx := context.Background()
	s := newTestBadger(t)

	err := s.View(ctx, func(tx Tx) error {
		_, err := tx.FindOne(ctx, NewRef("User) DETACH DELETE (n", "username", "ada"))
		return err
	})
	assert.True(t, apperrors.IsValidation(err))

	err = s.View(ctx, func(tx Tx) error {
		_, err := tx.FindOne(ctx, userRef(""))
		return err
	})
	assert.True(t, apperrors.IsValidation(err))
}

func TestBadger_CancelledContext(t *testing.T) {
	s := newTestBadger(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Update(ctx, func(tx Tx) error { return nil })
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeContext))
}

func TestBadger_IsNotAQuerier(t *testing.T) {
	var s Store = newTestBadger(t)
	_, ok := s.(Querier)
	assert.False(t, ok, "the embedded backend has no query language")
}

func TestBadger_ConcurrentWritersAllCommit(t *testing.T) {
	ctx := context.Background()
	s := newTestBadger(t)
	require.NoError(t, s.Update(ctx, func(tx Tx) error {
		_, err := tx.UpsertNode(ctx, userRef("ada"), Props{"upvote_count": int64(0)})
		return err
	}))

	const writers = 30
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Update(ctx, func(tx Tx) error {
				_, err := tx.Increment(ctx, userRef("ada"), "upvote_count", 1)
				return err
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	require.NoError(t, s.View(ctx, func(tx Tx) error {
		n, err := tx.FindOne(ctx, userRef("ada"))
		require.NoError(t, err)
		assert.EqualValues(t, writers, n.Props.Int64("upvote_count"))
		return nil
	}))
}

func TestBadger_ExhaustedConflictsAreNotAnOutage(t *testing.T) {
	ctx := context.Background()
	s, err := OpenBadger(BadgerOptions{
		InMemory:          true,
		ConflictRetries:   2,
		ConflictBaseDelay: time.Millisecond,
		ConflictMaxDelay:  2 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	require.NoError(t, s.Update(ctx, func(tx Tx) error {
		_, err := tx.UpsertNode(ctx, userRef("ada"), Props{"n": int64(0)})
		return err
	}))

	attempts := 0
	err = s.Update(ctx, func(tx Tx) error {
		attempts++
		if _, err := tx.Increment(ctx, userRef("ada"), "n", 1); err != nil {
			return err
		}
		// another writer commits to the same key before this transaction does
		return s.db.Update(func(txn *badger.Txn) error {
			_, err := (&badgerTx{txn: txn}).Increment(ctx, userRef("ada"), "n", 1)
			return err
		})
	})
	assert.True(t, apperrors.IsConflict(err))
	assert.False(t, apperrors.IsStoreUnavailable(err))
	assert.ErrorIs(t, err, badger.ErrConflict)
	assert.Equal(t, 3, attempts)
}

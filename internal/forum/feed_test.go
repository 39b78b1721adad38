package forum

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/apiclient"
)

var baseTime = time.Date(2024, 12, 20, 12, 0, 0, 0, time.UTC)

type fakeStore struct {
	mu       sync.Mutex
	messages []apiclient.ForumMessage
	listErr  error

	createErr  error
	created    apiclient.ForumMessage
	createGate chan struct{}

	likeErr   error
	likeCount int64
	likeGate  chan struct{}
	likeCalls []string
}

func (s *fakeStore) ListForumMessages(context.Context, int) ([]apiclient.ForumMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]apiclient.ForumMessage(nil), s.messages...), s.listErr
}

func (s *fakeStore) CreateForumMessage(_ context.Context, user, text string) (apiclient.ForumMessage, error) {
	if s.createGate != nil {
		<-s.createGate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return apiclient.ForumMessage{}, s.createErr
	}
	msg := s.created
	if msg.ID == "" {
		msg = apiclient.ForumMessage{ID: "srv-1", User: user, Text: text, CreatedAt: baseTime}
	}
	return msg, nil
}

func (s *fakeStore) SetLike(_ context.Context, messageID, action, _ string) (int64, error) {
	if s.likeGate != nil {
		<-s.likeGate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.likeCalls = append(s.likeCalls, messageID+":"+action)
	return s.likeCount, s.likeErr
}

func seededMessages(n int) []apiclient.ForumMessage {
	out := make([]apiclient.ForumMessage, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, apiclient.ForumMessage{
			ID:        fmt.Sprintf("m%d", i),
			User:      "Ana",
			Text:      fmt.Sprintf("message %d", i),
			CreatedAt: baseTime.Add(-time.Duration(i) * time.Minute),
		})
	}
	return out
}

func newTestFeed(store Store, opts ...Option) *Feed {
	seq := 0
	opts = append([]Option{
		WithClock(func() time.Time { return baseTime.Add(time.Hour) }),
		WithTempIDs(func() string { seq++; return fmt.Sprintf("t%d", seq) }),
	}, opts...)
	return NewFeed(store, opts...)
}

func TestPostReconcilesInPlace(t *testing.T) {
	store := &fakeStore{messages: seededMessages(3)}
	var announced []string
	feed := newTestFeed(store, WithAnnouncer(func(s string) { announced = append(announced, s) }))
	require.NoError(t, feed.Load(context.Background()))

	entry, err := feed.Post(context.Background(), "Ben", "  Merry Christmas!  ")
	require.NoError(t, err)
	assert.Equal(t, Authoritative, entry.State)
	assert.Equal(t, "srv-1", entry.ID)

	entries := feed.Entries()
	require.Len(t, entries, 4)
	assert.Equal(t, "srv-1", entries[0].ID)
	assert.Equal(t, "Merry Christmas!", entries[0].Text)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Key(), TempIDPrefix))
	}
	assert.Equal(t, []string{"Posting message", "Message posted"}, announced)
}

func TestPostShowsPendingRowWhileInFlight(t *testing.T) {
	store := &fakeStore{messages: seededMessages(2), createGate: make(chan struct{})}
	feed := newTestFeed(store)
	require.NoError(t, feed.Load(context.Background()))

	done := make(chan error, 1)
	go func() {
		_, err := feed.Post(context.Background(), "", "Hello")
		done <- err
	}()

	require.Eventually(t, func() bool { return len(feed.Entries()) == 3 }, time.Second, time.Millisecond)
	head := feed.Entries()[0]
	assert.Equal(t, Pending, head.State)
	assert.Equal(t, "local-t1", head.TempID)
	assert.Equal(t, DefaultUser, head.User)
	assert.Equal(t, "Sending...", head.Status(baseTime))

	close(store.createGate)
	require.NoError(t, <-done)
	entries := feed.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, Authoritative, entries[0].State)
}

func TestPostFailureFlipsRowToFailed(t *testing.T) {
	store := &fakeStore{messages: seededMessages(2), createErr: errors.New("db down")}
	feed := newTestFeed(store)
	require.NoError(t, feed.Load(context.Background()))

	entry, err := feed.Post(context.Background(), "Ben", "Hello")
	require.Error(t, err)
	assert.Equal(t, Failed, entry.State)

	entries := feed.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, Failed, entries[0].State)
	assert.Equal(t, "local-t1", entries[0].TempID)
	assert.Equal(t, "Failed to send", entries[0].Status(baseTime))

	// a reload keeps the failed row
	require.NoError(t, feed.Load(context.Background()))
	assert.Len(t, feed.Entries(), 3)
}

func TestReconcileDropsDuplicateFromReload(t *testing.T) {
	store := &fakeStore{createGate: make(chan struct{})}
	feed := newTestFeed(store)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = feed.Post(context.Background(), "Ben", "Hello")
	}()
	require.Eventually(t, func() bool { return len(feed.Entries()) == 1 }, time.Second, time.Millisecond)

	// the server row shows up in a reload before the create call returns
	store.mu.Lock()
	store.messages = []apiclient.ForumMessage{{ID: "srv-1", User: "Ben", Text: "Hello", CreatedAt: baseTime}}
	store.mu.Unlock()
	require.NoError(t, feed.Load(context.Background()))
	require.Len(t, feed.Entries(), 2)

	close(store.createGate)
	<-done
	entries := feed.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "srv-1", entries[0].ID)
}

func TestPostValidatesText(t *testing.T) {
	feed := newTestFeed(&fakeStore{})
	_, err := feed.Post(context.Background(), "Ben", "   ")
	assert.ErrorIs(t, err, ErrInvalidText)
	_, err = feed.Post(context.Background(), "Ben", strings.Repeat("x", MaxTextRunes+1))
	assert.ErrorIs(t, err, ErrInvalidText)
	assert.Empty(t, feed.Entries())
}

func TestReplyPrefixesParentUser(t *testing.T) {
	feed := newTestFeed(&fakeStore{})
	entry, err := feed.Reply(context.Background(), "Ben", Entry{ID: "m1", User: "Ana"}, " Thanks! ")
	require.NoError(t, err)
	assert.Equal(t, "@Ana Thanks!", entry.Text)
}

func TestToggleLikeSuccess(t *testing.T) {
	store := &fakeStore{likeCount: 4}
	feed := newTestFeed(store)

	liked, err := feed.ToggleLike(context.Background(), "m1", "Ben")
	require.NoError(t, err)
	assert.True(t, liked)
	assert.True(t, feed.Liked("m1"))
	count, ok := feed.LikeCount("m1")
	require.True(t, ok)
	assert.EqualValues(t, 4, count)

	store.likeCount = 3
	liked, err = feed.ToggleLike(context.Background(), "m1", "Ben")
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Equal(t, []string{"m1:like", "m1:unlike"}, store.likeCalls)
}

func TestToggleLikeRollbackRestoresPriorState(t *testing.T) {
	store := &fakeStore{likeCount: 1}
	feed := newTestFeed(store)
	_, err := feed.ToggleLike(context.Background(), "m1", "Ben")
	require.NoError(t, err)

	store.likeErr = errors.New("network")
	// failing unlike leaves the message liked
	liked, err := feed.ToggleLike(context.Background(), "m1", "Ben")
	require.Error(t, err)
	assert.True(t, liked)
	assert.True(t, feed.Liked("m1"))
	assert.False(t, feed.LikePending("m1"))

	// failing like on an untouched message leaves it unliked, twice over
	for i := 0; i < 2; i++ {
		_, err = feed.ToggleLike(context.Background(), "m2", "Ben")
		require.Error(t, err)
		assert.False(t, feed.Liked("m2"))
		assert.False(t, feed.LikePending("m2"))
	}
}

func TestToggleLikeWhilePending(t *testing.T) {
	store := &fakeStore{likeCount: 1, likeGate: make(chan struct{})}
	feed := newTestFeed(store)

	done := make(chan error, 1)
	go func() {
		_, err := feed.ToggleLike(context.Background(), "m1", "Ben")
		done <- err
	}()
	require.Eventually(t, func() bool { return feed.LikePending("m1") }, time.Second, time.Millisecond)
	assert.True(t, feed.Liked("m1"))

	_, err := feed.ToggleLike(context.Background(), "m1", "Ben")
	assert.ErrorIs(t, err, ErrLikePending)

	close(store.likeGate)
	require.NoError(t, <-done)
	assert.False(t, feed.LikePending("m1"))
}

func TestToggleLikeRejectsLocalRows(t *testing.T) {
	feed := newTestFeed(&fakeStore{})
	_, err := feed.ToggleLike(context.Background(), "local-t1", "Ben")
	assert.ErrorIs(t, err, ErrLikeUnavailable)
}

func TestRevealWindow(t *testing.T) {
	store := &fakeStore{messages: seededMessages(120)}
	feed := newTestFeed(store)
	require.NoError(t, feed.Load(context.Background()))

	assert.Len(t, feed.Entries(), 100)
	assert.Len(t, feed.Visible(), 10)
	assert.Equal(t, "m0", feed.Visible()[0].ID)
	assert.True(t, feed.HasMore())

	assert.Equal(t, 20, feed.LoadMore())
	for i := 0; i < 20; i++ {
		feed.LoadMore()
	}
	assert.Len(t, feed.Visible(), 100)
	assert.False(t, feed.HasMore())
}

func TestLoadSortsNewestFirst(t *testing.T) {
	msgs := seededMessages(3)
	msgs[0], msgs[2] = msgs[2], msgs[0]
	feed := newTestFeed(&fakeStore{messages: msgs})
	require.NoError(t, feed.Load(context.Background()))
	entries := feed.Entries()
	assert.Equal(t, []string{"m0", "m1", "m2"}, []string{entries[0].ID, entries[1].ID, entries[2].ID})
}

func TestLoadError(t *testing.T) {
	feed := newTestFeed(&fakeStore{listErr: errors.New("offline")})
	assert.Error(t, feed.Load(context.Background()))
}

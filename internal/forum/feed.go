// Package forum keeps the client-side forum feed: optimistic posts and likes that
// are reconciled with the server's answers by identity.
package forum

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/apiclient"
)

const (
	// TempIDPrefix marks ids minted locally; the server never issues them.
	TempIDPrefix = "local-"
	MaxTextRunes = 500
	DefaultUser  = "Visitor"
	fetchLimit   = 100
	windowStep   = 10
)

var (
	ErrInvalidText     = errors.New("forum: message text must be 1-500 characters")
	ErrLikePending     = errors.New("forum: a like for this message is already in flight")
	ErrLikeUnavailable = errors.New("forum: message has not been saved yet")
)

// Store is the server side of the feed.
type Store interface {
	ListForumMessages(ctx context.Context, limit int) ([]apiclient.ForumMessage, error)
	CreateForumMessage(ctx context.Context, user, text string) (apiclient.ForumMessage, error)
	SetLike(ctx context.Context, messageID, action, user string) (int64, error)
}

// State tags where an entry stands relative to the server.
type State int

const (
	Authoritative State = iota
	Pending
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Failed:
		return "failed"
	default:
		return "authoritative"
	}
}

// Entry is one row of the feed. ID is set once the server has stored the message;
// TempID is set while it is local.
type Entry struct {
	ID        string
	TempID    string
	User      string
	Text      string
	CreatedAt time.Time
	State     State
}

// Key identifies the entry in the feed.
func (e Entry) Key() string {
	if e.State == Authoritative {
		return e.ID
	}
	return e.TempID
}

// Status is the line shown under the author name.
func (e Entry) Status(now time.Time) string {
	switch e.State {
	case Pending:
		return "Sending..."
	case Failed:
		return "Failed to send"
	default:
		return TimeAgo(now, e.CreatedAt)
	}
}

// Feed is the in-memory forum list. It is safe for concurrent use; store calls run
// without holding the lock.
type Feed struct {
	store       Store
	now         func() time.Time
	newTempID   func() string
	announce    func(string)
	defaultUser string

	mu          sync.Mutex
	entries     []Entry
	liked       map[string]bool
	likePending map[string]bool
	counts      map[string]int64
	window      int
}

// Option customises a Feed.
type Option func(*Feed)

// WithClock overrides the time source used for optimistic timestamps.
func WithClock(now func() time.Time) Option {
	return func(f *Feed) {
		if now != nil {
			f.now = now
		}
	}
}

// WithTempIDs overrides the temp id generator. Generated ids are prefixed with
// TempIDPrefix when they lack it.
func WithTempIDs(fn func() string) Option {
	return func(f *Feed) {
		if fn != nil {
			f.newTempID = fn
		}
	}
}

// WithAnnouncer receives short status lines for assistive output.
func WithAnnouncer(fn func(string)) Option {
	return func(f *Feed) {
		f.announce = fn
	}
}

// WithDefaultUser sets the author shown for anonymous posts.
func WithDefaultUser(name string) Option {
	return func(f *Feed) {
		if name = strings.TrimSpace(name); name != "" {
			f.defaultUser = name
		}
	}
}

// NewFeed constructs an empty feed over store.
func NewFeed(store Store, opts ...Option) *Feed {
	f := &Feed{
		store:       store,
		now:         time.Now,
		newTempID:   uuid.NewString,
		defaultUser: DefaultUser,
		liked:       map[string]bool{},
		likePending: map[string]bool{},
		counts:      map[string]int64{},
		window:      windowStep,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

func (f *Feed) say(msg string) {
	if f.announce != nil {
		f.announce(msg)
	}
}

// Load replaces the authoritative rows with the newest messages from the store.
// Local pending and failed rows are kept.
func (f *Feed) Load(ctx context.Context) error {
	msgs, err := f.store.ListForumMessages(ctx, fetchLimit)
	if err != nil {
		return fmt.Errorf("forum: load messages: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	merged := make([]Entry, 0, len(msgs)+len(f.entries))
	for _, e := range f.entries {
		if e.State != Authoritative {
			merged = append(merged, e)
		}
	}
	seen := make(map[string]bool, len(msgs))
	for _, m := range msgs {
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		merged = append(merged, fromMessage(m))
	}
	slices.SortStableFunc(merged, func(a, b Entry) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(merged) > fetchLimit {
		merged = merged[:fetchLimit]
	}
	f.entries = merged
	return nil
}

func fromMessage(m apiclient.ForumMessage) Entry {
	return Entry{ID: m.ID, User: m.User, Text: m.Text, CreatedAt: m.CreatedAt, State: Authoritative}
}

// Post adds the message optimistically at the head of the feed, then stores it. The
// returned entry is the authoritative record on success and the failed row otherwise.
func (f *Feed) Post(ctx context.Context, user, text string) (Entry, error) {
	text = strings.TrimSpace(text)
	if text == "" || utf8.RuneCountInString(text) > MaxTextRunes {
		return Entry{}, ErrInvalidText
	}
	user = strings.TrimSpace(user)
	display := user
	if display == "" {
		display = f.defaultUser
	}

	tempID := f.newTempID()
	if !strings.HasPrefix(tempID, TempIDPrefix) {
		tempID = TempIDPrefix + tempID
	}
	pending := Entry{
		TempID:    tempID,
		User:      display,
		Text:      text,
		CreatedAt: f.now(),
		State:     Pending,
	}

	f.mu.Lock()
	f.entries = append([]Entry{pending}, f.entries...)
	f.mu.Unlock()
	f.say("Posting message")

	msg, err := f.store.CreateForumMessage(ctx, user, text)

	f.mu.Lock()
	if err != nil {
		failed := pending
		failed.State = Failed
		f.replaceLocked(tempID, failed)
		f.mu.Unlock()
		f.say("Message failed to send")
		return failed, fmt.Errorf("forum: post message: %w", err)
	}
	stored := fromMessage(msg)
	f.replaceLocked(tempID, stored)
	f.mu.Unlock()
	f.say("Message posted")
	return stored, nil
}

// replaceLocked swaps the row holding tempID for e in place and drops any other row
// with e's server id, so one logical post never appears twice.
func (f *Feed) replaceLocked(tempID string, e Entry) {
	idx := slices.IndexFunc(f.entries, func(x Entry) bool {
		return x.State != Authoritative && x.TempID == tempID
	})
	if idx < 0 {
		if e.State == Authoritative && slices.ContainsFunc(f.entries, func(x Entry) bool {
			return x.State == Authoritative && x.ID == e.ID
		}) {
			return
		}
		f.entries = append([]Entry{e}, f.entries...)
		return
	}
	f.entries[idx] = e
	if e.State != Authoritative {
		return
	}
	kept := f.entries[:0]
	for i, x := range f.entries {
		if i != idx && x.State == Authoritative && x.ID == e.ID {
			continue
		}
		kept = append(kept, x)
	}
	f.entries = kept
}

// Reply posts text addressed to the author of parent.
func (f *Feed) Reply(ctx context.Context, user string, parent Entry, text string) (Entry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Entry{}, ErrInvalidText
	}
	return f.Post(ctx, user, "@"+parent.User+" "+text)
}

// ToggleLike flips the like on messageID for user. The flip shows immediately; if
// the store rejects it the previous state is restored.
func (f *Feed) ToggleLike(ctx context.Context, messageID, user string) (bool, error) {
	messageID = strings.TrimSpace(messageID)
	if messageID == "" || strings.HasPrefix(messageID, TempIDPrefix) {
		return false, ErrLikeUnavailable
	}

	f.mu.Lock()
	if f.likePending[messageID] {
		f.mu.Unlock()
		return false, ErrLikePending
	}
	prev, had := f.liked[messageID]
	next := !prev
	f.liked[messageID] = next
	f.likePending[messageID] = true
	f.mu.Unlock()

	action := "unlike"
	if next {
		action = "like"
	}
	count, err := f.store.SetLike(ctx, messageID, action, user)

	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.likePending, messageID)
	if err != nil {
		if had {
			f.liked[messageID] = prev
		} else {
			delete(f.liked, messageID)
		}
		return prev, fmt.Errorf("forum: %s message: %w", action, err)
	}
	f.counts[messageID] = count
	return next, nil
}

// Liked reports whether the viewer has liked messageID.
func (f *Feed) Liked(messageID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.liked[messageID]
}

// LikePending reports whether a like toggle is in flight for messageID.
func (f *Feed) LikePending(messageID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.likePending[messageID]
}

// LikeCount returns the last count the store reported for messageID.
func (f *Feed) LikeCount(messageID string) (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.counts[messageID]
	return n, ok
}

// Entries returns every row, newest first.
func (f *Feed) Entries() []Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.entries)
}

// Visible returns the rows inside the reveal window.
func (f *Feed) Visible() []Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := min(f.window, len(f.entries))
	return slices.Clone(f.entries[:n])
}

// HasMore reports whether LoadMore would reveal more rows.
func (f *Feed) HasMore() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.window < len(f.entries) && f.window < fetchLimit
}

// LoadMore widens the reveal window by ten rows and returns the new visible count.
func (f *Feed) LoadMore() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.window = min(f.window+windowStep, fetchLimit)
	return min(f.window, len(f.entries))
}

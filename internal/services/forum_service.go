package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	domain "github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/domain"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/repositories"
)

const (
	// MaxForumMessageRunes caps post length after sanitising.
	MaxForumMessageRunes = 500
	// MaxForumListLimit caps the number of messages returned by one list call.
	MaxForumListLimit = 100
	maxForumUserRunes = 50
)

// ErrForumInvalidInput indicates a malformed post or like request.
var ErrForumInvalidInput = errors.New("forum: invalid input")

// ForumServiceDeps wires the forum service.
type ForumServiceDeps struct {
	Messages    repositories.ForumMessageRepository
	Likes       repositories.ForumLikeRepository
	DefaultUser string
	Events      EventPublisher
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type forumService struct {
	messages    repositories.ForumMessageRepository
	likes       repositories.ForumLikeRepository
	defaultUser string
	policy      *bluemonday.Policy
	events      eventEmitter
	now         func() time.Time
	newID       func() string
	logger      func(context.Context, string, map[string]any)
}

var _ ForumService = (*forumService)(nil)

// NewForumService constructs the forum service.
func NewForumService(deps ForumServiceDeps) (ForumService, error) {
	if deps.Messages == nil {
		return nil, errors.New("forum service: message repository is required")
	}
	if deps.Likes == nil {
		return nil, errors.New("forum service: like repository is required")
	}
	defaultUser := strings.TrimSpace(deps.DefaultUser)
	if defaultUser == "" {
		defaultUser = domain.DefaultForumUser
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	now := func() time.Time { return clock().UTC() }
	return &forumService{
		messages:    deps.Messages,
		likes:       deps.Likes,
		defaultUser: defaultUser,
		policy:      bluemonday.StrictPolicy(),
		events:      newEventEmitter(deps.Events, logger, now),
		now:         now,
		newID:       idGen,
		logger:      logger,
	}, nil
}

func (s *forumService) ListMessages(ctx context.Context, limit int) ([]ForumMessage, error) {
	if limit <= 0 || limit > MaxForumListLimit {
		limit = MaxForumListLimit
	}
	messages, err := s.messages.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("forum: list messages: %w", err)
	}
	return messages, nil
}

// PostMessage strips markup from the user and text, enforces the length limits and stores
// the message with a server-issued id.
func (s *forumService) PostMessage(ctx context.Context, cmd PostMessageCommand) (ForumMessage, error) {
	text := s.clean(cmd.Text)
	if text == "" {
		return ForumMessage{}, fmt.Errorf("%w: text is required", ErrForumInvalidInput)
	}
	if utf8.RuneCountInString(text) > MaxForumMessageRunes {
		return ForumMessage{}, fmt.Errorf("%w: text exceeds %d characters", ErrForumInvalidInput, MaxForumMessageRunes)
	}
	user := s.resolveUser(cmd.User)
	if utf8.RuneCountInString(user) > maxForumUserRunes {
		return ForumMessage{}, fmt.Errorf("%w: user exceeds %d characters", ErrForumInvalidInput, maxForumUserRunes)
	}

	message := ForumMessage{
		ID:        s.newID(),
		User:      user,
		Text:      text,
		CreatedAt: s.now(),
	}
	if err := s.messages.Insert(ctx, message); err != nil {
		return ForumMessage{}, fmt.Errorf("forum: insert message: %w", err)
	}

	s.logger(ctx, "forum.message.posted", map[string]any{"messageId": message.ID, "user": user})
	s.events.emit(ctx, EventForumMessagePosted, message.ID, map[string]any{"user": user})
	return message, nil
}

// SetLike applies a like or unlike and returns the fresh count. Liking twice and
// unliking a missing like both succeed.
func (s *forumService) SetLike(ctx context.Context, cmd SetLikeCommand) (LikeResult, error) {
	messageID := strings.TrimSpace(cmd.MessageID)
	if messageID == "" || cmd.Action == "" {
		return LikeResult{}, fmt.Errorf("%w: messageId and action are required", ErrForumInvalidInput)
	}
	if !cmd.Action.Valid() {
		return LikeResult{}, fmt.Errorf("%w: unknown action %q", ErrForumInvalidInput, cmd.Action)
	}
	user := s.resolveUser(cmd.UserName)

	switch cmd.Action {
	case domain.LikeActionLike:
		err := s.likes.Insert(ctx, domain.ForumLike{MessageID: messageID, UserName: user, CreatedAt: s.now()})
		if err != nil {
			return LikeResult{}, fmt.Errorf("forum: insert like: %w", err)
		}
	case domain.LikeActionUnlike:
		if err := s.likes.Delete(ctx, messageID, user); err != nil {
			return LikeResult{}, fmt.Errorf("forum: delete like: %w", err)
		}
	}

	count, err := s.likes.CountByMessage(ctx, messageID)
	if err != nil {
		return LikeResult{}, fmt.Errorf("forum: count likes: %w", err)
	}

	s.events.emit(ctx, EventForumLikeChanged, messageID, map[string]any{
		"action": string(cmd.Action),
		"user":   user,
		"count":  count,
	})
	return LikeResult{MessageID: messageID, Count: count}, nil
}

func (s *forumService) resolveUser(user string) string {
	if cleaned := s.clean(user); cleaned != "" {
		return cleaned
	}
	return s.defaultUser
}

// clean removes every tag. The strict policy escapes entities, which are unescaped again
// because clients render the text as plain text.
func (s *forumService) clean(value string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(value)))
}

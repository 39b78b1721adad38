package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	domain "github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/domain"
)

func newForumTestService(t *testing.T, store *memoryForumStore, pub EventPublisher) ForumService {
	t.Helper()
	base := time.Date(2024, 12, 24, 8, 0, 0, 0, time.UTC)
	tick := 0
	ids := 0
	svc, err := NewForumService(ForumServiceDeps{
		Messages: store,
		Likes:    memoryLikeStore{store},
		Events:   pub,
		Clock: func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Second)
		},
		IDGenerator: func() string {
			ids++
			return fmt.Sprintf("msg-%d", ids)
		},
	})
	if err != nil {
		t.Fatalf("NewForumService: %v", err)
	}
	return svc
}

func TestForumServicePostMessage(t *testing.T) {
	store := newMemoryForumStore()
	pub := &recordingPublisher{}
	svc := newForumTestService(t, store, pub)

	msg, err := svc.PostMessage(context.Background(), PostMessageCommand{Text: "  Hello <b>Forum</b>  "})
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	if msg.ID != "msg-1" || msg.User != domain.DefaultForumUser || msg.Text != "Hello Forum" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if got := pub.types(); len(got) != 1 || got[0] != EventForumMessagePosted {
		t.Fatalf("expected posted event, got %v", got)
	}
}

func TestForumServicePostMessageKeepsPlainTextEntities(t *testing.T) {
	svc := newForumTestService(t, newMemoryForumStore(), nil)
	msg, err := svc.PostMessage(context.Background(), PostMessageCommand{User: "Ana", Text: "Tom & Jerry's cards"})
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	if msg.Text != "Tom & Jerry's cards" || msg.User != "Ana" {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestForumServicePostMessageValidation(t *testing.T) {
	svc := newForumTestService(t, newMemoryForumStore(), nil)
	cases := map[string]string{
		"empty":       "   ",
		"markup only": "<img src=x>",
		"too long":    strings.Repeat("a", MaxForumMessageRunes+1),
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.PostMessage(context.Background(), PostMessageCommand{Text: text}); !errors.Is(err, ErrForumInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
}

func TestForumServiceListMessagesNewestFirst(t *testing.T) {
	store := newMemoryForumStore()
	svc := newForumTestService(t, store, nil)
	for _, text := range []string{"first", "second", "third"} {
		if _, err := svc.PostMessage(context.Background(), PostMessageCommand{Text: text}); err != nil {
			t.Fatalf("PostMessage: %v", err)
		}
	}

	list, err := svc.ListMessages(context.Background(), 2)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(list) != 2 || list[0].Text != "third" || list[1].Text != "second" {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestForumServiceSetLikeIsIdempotent(t *testing.T) {
	store := newMemoryForumStore()
	pub := &recordingPublisher{}
	svc := newForumTestService(t, store, pub)
	ctx := context.Background()

	steps := []struct {
		user   string
		action domain.LikeAction
		want   int64
	}{
		{"", domain.LikeActionLike, 1},
		{"", domain.LikeActionLike, 1},
		{"Ana", domain.LikeActionLike, 2},
		{"", domain.LikeActionUnlike, 1},
		{"", domain.LikeActionUnlike, 1},
	}
	for i, step := range steps {
		res, err := svc.SetLike(ctx, SetLikeCommand{MessageID: "m1", Action: step.action, UserName: step.user})
		if err != nil {
			t.Fatalf("step %d: SetLike: %v", i, err)
		}
		if res.Count != step.want || res.MessageID != "m1" {
			t.Fatalf("step %d: expected count %d, got %+v", i, step.want, res)
		}
	}
	if len(pub.types()) != len(steps) {
		t.Fatalf("expected one event per change, got %d", len(pub.types()))
	}
}

func TestForumServiceSetLikeValidation(t *testing.T) {
	svc := newForumTestService(t, newMemoryForumStore(), nil)
	cases := map[string]SetLikeCommand{
		"missing message": {Action: domain.LikeActionLike},
		"missing action":  {MessageID: "m1"},
		"unknown action":  {MessageID: "m1", Action: "love"},
	}
	for name, cmd := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.SetLike(context.Background(), cmd); !errors.Is(err, ErrForumInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
}

func TestForumServiceSetLikeCountFailure(t *testing.T) {
	store := newMemoryForumStore()
	store.countErr = errors.New("count failed")
	svc := newForumTestService(t, store, nil)
	if _, err := svc.SetLike(context.Background(), SetLikeCommand{MessageID: "m1", Action: domain.LikeActionLike}); err == nil {
		t.Fatalf("expected count error")
	}
}

package firestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/domain"
	pfirestore "github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/firestore"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/repositories"
)

const (
	forumMessagesCollection = "forum_messages"
	forumLikesCollection    = "forum_likes"
)

// ForumMessageRepository persists forum posts.
type ForumMessageRepository struct {
	base *pfirestore.BaseRepository[forumMessageDocument]
}

var _ repositories.ForumMessageRepository = (*ForumMessageRepository)(nil)

// NewForumMessageRepository constructs a Firestore-backed message repository.
func NewForumMessageRepository(provider *pfirestore.Provider) (*ForumMessageRepository, error) {
	if provider == nil {
		return nil, errors.New("forum message repository: firestore provider is required")
	}
	return &ForumMessageRepository{
		base: pfirestore.NewBaseRepository[forumMessageDocument](provider, forumMessagesCollection),
	}, nil
}

// Insert stores a new message. The ID must be unique.
func (r *ForumMessageRepository) Insert(ctx context.Context, message domain.ForumMessage) error {
	if r == nil || r.base == nil {
		return errors.New("forum message repository not initialised")
	}
	id := strings.TrimSpace(message.ID)
	if id == "" {
		return errors.New("forum message repository: message id is required")
	}
	_, err := r.base.Create(ctx, id, forumMessageDocument{
		UserName:  message.User,
		Text:      message.Text,
		CreatedAt: message.CreatedAt.UTC(),
	})
	return err
}

// ListRecent returns the newest messages first.
func (r *ForumMessageRepository) ListRecent(ctx context.Context, limit int) ([]domain.ForumMessage, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("forum message repository not initialised")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		q = q.OrderBy("created_at", firestore.Desc)
		if limit > 0 {
			q = q.Limit(limit)
		}
		return q
	})
	if err != nil {
		return nil, err
	}
	messages := make([]domain.ForumMessage, 0, len(docs))
	for _, doc := range docs {
		messages = append(messages, domain.ForumMessage{
			ID:        doc.ID,
			User:      doc.Data.UserName,
			Text:      doc.Data.Text,
			CreatedAt: doc.Data.CreatedAt,
		})
	}
	return messages, nil
}

type forumMessageDocument struct {
	UserName  string    `firestore:"user_name"`
	Text      string    `firestore:"text"`
	CreatedAt time.Time `firestore:"created_at"`
}

// ForumLikeRepository stores one document per (message, user) pair. The document id is
// derived from the pair so duplicate likes collide on create.
type ForumLikeRepository struct {
	base *pfirestore.BaseRepository[forumLikeDocument]
}

var _ repositories.ForumLikeRepository = (*ForumLikeRepository)(nil)

// NewForumLikeRepository constructs a Firestore-backed like repository.
func NewForumLikeRepository(provider *pfirestore.Provider) (*ForumLikeRepository, error) {
	if provider == nil {
		return nil, errors.New("forum like repository: firestore provider is required")
	}
	return &ForumLikeRepository{
		base: pfirestore.NewBaseRepository[forumLikeDocument](provider, forumLikesCollection),
	}, nil
}

// Insert records the like. An existing pair is left untouched.
func (r *ForumLikeRepository) Insert(ctx context.Context, like domain.ForumLike) error {
	if r == nil || r.base == nil {
		return errors.New("forum like repository not initialised")
	}
	messageID, userName := strings.TrimSpace(like.MessageID), strings.TrimSpace(like.UserName)
	if messageID == "" || userName == "" {
		return errors.New("forum like repository: message id and user name are required")
	}
	_, err := r.base.Create(ctx, likeDocumentID(messageID, userName), forumLikeDocument{
		MessageID: messageID,
		UserName:  userName,
		CreatedAt: like.CreatedAt.UTC(),
	})
	if err != nil && !isConflict(err) {
		return err
	}
	return nil
}

// Delete removes the pair if present.
func (r *ForumLikeRepository) Delete(ctx context.Context, messageID, userName string) error {
	if r == nil || r.base == nil {
		return errors.New("forum like repository not initialised")
	}
	messageID, userName = strings.TrimSpace(messageID), strings.TrimSpace(userName)
	if messageID == "" || userName == "" {
		return errors.New("forum like repository: message id and user name are required")
	}
	return r.base.Delete(ctx, likeDocumentID(messageID, userName))
}

// CountByMessage counts likes for a message with a server-side aggregation.
func (r *ForumLikeRepository) CountByMessage(ctx context.Context, messageID string) (int64, error) {
	if r == nil || r.base == nil {
		return 0, errors.New("forum like repository not initialised")
	}
	messageID = strings.TrimSpace(messageID)
	return r.base.Count(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("message_id", "==", messageID)
	})
}

type forumLikeDocument struct {
	MessageID string    `firestore:"message_id"`
	UserName  string    `firestore:"user_name"`
	CreatedAt time.Time `firestore:"created_at"`
}

func likeDocumentID(messageID, userName string) string {
	sum := sha256.Sum256([]byte(messageID + "\x00" + userName))
	return hex.EncodeToString(sum[:])
}

package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/domain"
	ppostgres "github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/postgres"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/repositories"
)

// ForumMessageRepository persists forum posts in forum_messages.
type ForumMessageRepository struct {
	db *pgxpool.Pool
}

var _ repositories.ForumMessageRepository = (*ForumMessageRepository)(nil)

// NewForumMessageRepository constructs a pgx-backed message repository.
func NewForumMessageRepository(db *pgxpool.Pool) (*ForumMessageRepository, error) {
	if db == nil {
		return nil, errors.New("forum message repository: postgres pool is required")
	}
	return &ForumMessageRepository{db: db}, nil
}

func (r *ForumMessageRepository) Insert(ctx context.Context, message domain.ForumMessage) error {
	if strings.TrimSpace(message.ID) == "" {
		return errors.New("forum message repository: message id is required")
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO forum_messages (id, user_name, text, created_at) VALUES ($1, $2, $3, $4)`,
		message.ID, message.User, message.Text, message.CreatedAt.UTC(),
	)
	return wrapError("forum_messages.insert", err)
}

func (r *ForumMessageRepository) ListRecent(ctx context.Context, limit int) ([]domain.ForumMessage, error) {
	query := `SELECT id, user_name, text, created_at FROM forum_messages ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapError("forum_messages.list", err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[forumMessageRow])
	if err != nil {
		return nil, wrapError("forum_messages.list", err)
	}
	messages := make([]domain.ForumMessage, 0, len(records))
	for _, record := range records {
		messages = append(messages, domain.ForumMessage{
			ID:        record.ID,
			User:      record.UserName,
			Text:      record.Text,
			CreatedAt: record.CreatedAt,
		})
	}
	return messages, nil
}

type forumMessageRow struct {
	ID        string    `db:"id"`
	UserName  string    `db:"user_name"`
	Text      string    `db:"text"`
	CreatedAt time.Time `db:"created_at"`
}

// ForumLikeRepository stores like pairs in forum_likes, which carries a unique
// (message_id, user_name) constraint.
type ForumLikeRepository struct {
	db *pgxpool.Pool
}

var _ repositories.ForumLikeRepository = (*ForumLikeRepository)(nil)

// NewForumLikeRepository constructs a pgx-backed like repository.
func NewForumLikeRepository(db *pgxpool.Pool) (*ForumLikeRepository, error) {
	if db == nil {
		return nil, errors.New("forum like repository: postgres pool is required")
	}
	return &ForumLikeRepository{db: db}, nil
}

// Insert records the like. A unique violation means the pair already exists and is
// treated as success.
func (r *ForumLikeRepository) Insert(ctx context.Context, like domain.ForumLike) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO forum_likes (message_id, user_name, created_at) VALUES ($1, $2, $3)`,
		like.MessageID, like.UserName, like.CreatedAt.UTC(),
	)
	if err != nil && !ppostgres.IsUniqueViolation(err) {
		return wrapError("forum_likes.insert", err)
	}
	return nil
}

func (r *ForumLikeRepository) Delete(ctx context.Context, messageID, userName string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM forum_likes WHERE message_id = $1 AND user_name = $2`,
		messageID, userName,
	)
	return wrapError("forum_likes.delete", err)
}

func (r *ForumLikeRepository) CountByMessage(ctx context.Context, messageID string) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM forum_likes WHERE message_id = $1`,
		messageID,
	).Scan(&count)
	if err != nil {
		return 0, wrapError("forum_likes.count", err)
	}
	return count, nil
}

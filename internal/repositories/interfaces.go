package repositories

import (
	"context"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Templates() TemplateRepository
	ForumMessages() ForumMessageRepository
	ForumLikes() ForumLikeRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// TemplateRepository stores the card catalog.
type TemplateRepository interface {
	// List returns templates newest first. limit <= 0 means no limit.
	List(ctx context.Context, limit int) ([]domain.Template, error)
	FindByID(ctx context.Context, templateID string) (domain.Template, error)
	// Upsert creates the template or refreshes its metadata, keeping CreatedAt and ImageURL
	// when the seed leaves it empty.
	Upsert(ctx context.Context, template domain.Template) (domain.Template, error)
	// UpdateImageURL sets image_url on an existing template.
	UpdateImageURL(ctx context.Context, templateID, imageURL string) error
}

// ForumMessageRepository stores forum posts.
type ForumMessageRepository interface {
	Insert(ctx context.Context, message domain.ForumMessage) error
	// ListRecent returns up to limit messages ordered by CreatedAt descending.
	ListRecent(ctx context.Context, limit int) ([]domain.ForumMessage, error)
}

// ForumLikeRepository stores (message, user) like pairs.
type ForumLikeRepository interface {
	// Insert records a like. Inserting an existing pair is not an error.
	Insert(ctx context.Context, like domain.ForumLike) error
	// Delete removes the exact pair. Deleting a missing pair is not an error.
	Delete(ctx context.Context, messageID, userName string) error
	CountByMessage(ctx context.Context, messageID string) (int64, error)
}

// HealthRepository aggregates dependency probes.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}

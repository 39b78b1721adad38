// Package postgres implements the repository registry on a pgx connection pool. It is
// selected with STOREFRONT_STORE_DRIVER=postgres and expects the embedded migrations in
// internal/platform/postgres to have run.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/repositories"
)

// Registry wires the Postgres repositories behind repositories.Registry.
type Registry struct {
	db *pgxpool.Pool

	templates *TemplateRepository
	messages  *ForumMessageRepository
	likes     *ForumLikeRepository
	health    repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry builds every repository on the pool. The pool ping is always a readiness
// check; extra carries probes for other dependencies.
func NewRegistry(db *pgxpool.Pool, extra ...repositories.DependencyCheck) (*Registry, error) {
	if db == nil {
		return nil, errors.New("postgres registry: pool is required")
	}
	templates, err := NewTemplateRepository(db)
	if err != nil {
		return nil, err
	}
	messages, err := NewForumMessageRepository(db)
	if err != nil {
		return nil, err
	}
	likes, err := NewForumLikeRepository(db)
	if err != nil {
		return nil, err
	}
	checks := append([]repositories.DependencyCheck{{Name: "postgres", Check: db.Ping}}, extra...)
	health, err := repositories.NewDependencyHealthRepository(checks)
	if err != nil {
		return nil, fmt.Errorf("postgres registry: %w", err)
	}
	return &Registry{db: db, templates: templates, messages: messages, likes: likes, health: health}, nil
}

// Close closes the pool.
func (r *Registry) Close(context.Context) error {
	r.db.Close()
	return nil
}

func (r *Registry) Templates() repositories.TemplateRepository { return r.templates }

func (r *Registry) ForumMessages() repositories.ForumMessageRepository { return r.messages }

func (r *Registry) ForumLikes() repositories.ForumLikeRepository { return r.likes }

func (r *Registry) Health() repositories.HealthRepository { return r.health }

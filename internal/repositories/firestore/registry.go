package firestore

import (
	"context"
	"errors"
	"fmt"

	pfirestore "github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/firestore"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/repositories"
)

// Registry wires the Firestore repositories behind repositories.Registry.
type Registry struct {
	provider *pfirestore.Provider

	templates *TemplateRepository
	messages  *ForumMessageRepository
	likes     *ForumLikeRepository
	health    repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry builds every repository on the shared provider. The Firestore ping is
// always part of the readiness checks; extra carries probes for other dependencies.
func NewRegistry(provider *pfirestore.Provider, extra ...repositories.DependencyCheck) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("firestore registry: provider is required")
	}
	templates, err := NewTemplateRepository(provider)
	if err != nil {
		return nil, err
	}
	messages, err := NewForumMessageRepository(provider)
	if err != nil {
		return nil, err
	}
	likes, err := NewForumLikeRepository(provider)
	if err != nil {
		return nil, err
	}

	checks := append([]repositories.DependencyCheck{{Name: "firestore", Check: provider.Ping}}, extra...)
	health, err := repositories.NewDependencyHealthRepository(checks)
	if err != nil {
		return nil, fmt.Errorf("firestore registry: %w", err)
	}

	return &Registry{
		provider:  provider,
		templates: templates,
		messages:  messages,
		likes:     likes,
		health:    health,
	}, nil
}

func (r *Registry) Close(ctx context.Context) error { return r.provider.Close(ctx) }

func (r *Registry) Templates() repositories.TemplateRepository { return r.templates }

func (r *Registry) ForumMessages() repositories.ForumMessageRepository { return r.messages }

func (r *Registry) ForumLikes() repositories.ForumLikeRepository { return r.likes }

func (r *Registry) Health() repositories.HealthRepository { return r.health }

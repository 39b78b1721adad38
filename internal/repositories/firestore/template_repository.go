package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/domain"
	pfirestore "github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/firestore"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/repositories"
)

const templatesCollection = "templates"

// TemplateRepository persists catalog templates.
type TemplateRepository struct {
	base *pfirestore.BaseRepository[templateDocument]
}

var _ repositories.TemplateRepository = (*TemplateRepository)(nil)

// NewTemplateRepository constructs a Firestore-backed template repository.
func NewTemplateRepository(provider *pfirestore.Provider) (*TemplateRepository, error) {
	if provider == nil {
		return nil, errors.New("template repository: firestore provider is required")
	}
	return &TemplateRepository{
		base: pfirestore.NewBaseRepository[templateDocument](provider, templatesCollection),
	}, nil
}

// List returns templates newest first.
func (r *TemplateRepository) List(ctx context.Context, limit int) ([]domain.Template, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("template repository not initialised")
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
	templates := make([]domain.Template, 0, len(docs))
	for _, doc := range docs {
		templates = append(templates, decodeTemplateDocument(doc))
	}
	return templates, nil
}

// FindByID loads a single template.
func (r *TemplateRepository) FindByID(ctx context.Context, templateID string) (domain.Template, error) {
	if r == nil || r.base == nil {
		return domain.Template{}, errors.New("template repository not initialised")
	}
	templateID = strings.TrimSpace(templateID)
	if templateID == "" {
		return domain.Template{}, errors.New("template repository: template id is required")
	}
	doc, err := r.base.Get(ctx, templateID)
	if err != nil {
		return domain.Template{}, err
	}
	return decodeTemplateDocument(doc), nil
}

// Upsert creates the template or refreshes its catalog fields.
func (r *TemplateRepository) Upsert(ctx context.Context, template domain.Template) (domain.Template, error) {
	if r == nil || r.base == nil {
		return domain.Template{}, errors.New("template repository not initialised")
	}
	template.ID = strings.TrimSpace(template.ID)
	if template.ID == "" {
		return domain.Template{}, errors.New("template repository: template id is required")
	}

	existing, err := r.base.Get(ctx, template.ID)
	switch {
	case err == nil:
		template.CreatedAt = existing.Data.CreatedAt
		if strings.TrimSpace(template.ImageURL) == "" {
			template.ImageURL = existing.Data.ImageURL
		}
	case isNotFound(err):
	default:
		return domain.Template{}, err
	}

	if _, err := r.base.Set(ctx, template.ID, encodeTemplateDocument(template)); err != nil {
		return domain.Template{}, err
	}
	return template, nil
}

// UpdateImageURL points the template at a newly uploaded image.
func (r *TemplateRepository) UpdateImageURL(ctx context.Context, templateID, imageURL string) error {
	if r == nil || r.base == nil {
		return errors.New("template repository not initialised")
	}
	templateID = strings.TrimSpace(templateID)
	if templateID == "" {
		return errors.New("template repository: template id is required")
	}
	_, err := r.base.Update(ctx, templateID, []firestore.Update{
		{Path: "image_url", Value: imageURL},
		{Path: "updated_at", Value: firestore.ServerTimestamp},
	})
	return err
}

type templateDocument struct {
	Title       string    `firestore:"title"`
	Description string    `firestore:"description"`
	Price       float64   `firestore:"price"`
	ImageURL    string    `firestore:"image_url"`
	Category    string    `firestore:"category,omitempty"`
	CreatedAt   time.Time `firestore:"created_at"`
	UpdatedAt   time.Time `firestore:"updated_at"`
}

func encodeTemplateDocument(t domain.Template) templateDocument {
	return templateDocument{
		Title:       t.Title,
		Description: t.Description,
		Price:       t.Price,
		ImageURL:    t.ImageURL,
		Category:    t.Category,
		CreatedAt:   t.CreatedAt.UTC(),
		UpdatedAt:   t.UpdatedAt.UTC(),
	}
}

func decodeTemplateDocument(doc pfirestore.Document[templateDocument]) domain.Template {
	return domain.Template{
		ID:          doc.ID,
		Title:       doc.Data.Title,
		Description: doc.Data.Description,
		Price:       doc.Data.Price,
		ImageURL:    doc.Data.ImageURL,
		Category:    doc.Data.Category,
		CreatedAt:   doc.Data.CreatedAt,
		UpdatedAt:   doc.Data.UpdatedAt,
	}
}

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

func isConflict(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}

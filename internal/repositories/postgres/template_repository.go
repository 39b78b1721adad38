package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/domain"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/repositories"
)

const templateColumns = `id, title, description, price::float8 AS price, image_url, category, created_at, updated_at`

// TemplateRepository persists catalog templates in the templates table.
type TemplateRepository struct {
	db *pgxpool.Pool
}

var _ repositories.TemplateRepository = (*TemplateRepository)(nil)

// NewTemplateRepository constructs a pgx-backed template repository.
func NewTemplateRepository(db *pgxpool.Pool) (*TemplateRepository, error) {
	if db == nil {
		return nil, errors.New("template repository: postgres pool is required")
	}
	return &TemplateRepository{db: db}, nil
}

func (r *TemplateRepository) List(ctx context.Context, limit int) ([]domain.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM templates ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapError("templates.list", err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[templateRow])
	if err != nil {
		return nil, wrapError("templates.list", err)
	}
	templates := make([]domain.Template, 0, len(records))
	for _, record := range records {
		templates = append(templates, record.toDomain())
	}
	return templates, nil
}

func (r *TemplateRepository) FindByID(ctx context.Context, templateID string) (domain.Template, error) {
	templateID = strings.TrimSpace(templateID)
	if templateID == "" {
		return domain.Template{}, errors.New("template repository: template id is required")
	}
	rows, err := r.db.Query(ctx, `SELECT `+templateColumns+` FROM templates WHERE id = $1`, templateID)
	if err != nil {
		return domain.Template{}, wrapError("templates.get", err)
	}
	record, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[templateRow])
	if err != nil {
		return domain.Template{}, wrapError("templates.get", err)
	}
	return record.toDomain(), nil
}

// Upsert inserts the template or refreshes its catalog fields. created_at is kept and an
// empty image_url does not clear a previously uploaded image.
func (r *TemplateRepository) Upsert(ctx context.Context, template domain.Template) (domain.Template, error) {
	template.ID = strings.TrimSpace(template.ID)
	if template.ID == "" {
		return domain.Template{}, errors.New("template repository: template id is required")
	}
	rows, err := r.db.Query(ctx, `
        INSERT INTO templates (id, title, description, price, image_url, category, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (id) DO UPDATE SET
            title = EXCLUDED.title,
            description = EXCLUDED.description,
            price = EXCLUDED.price,
            image_url = COALESCE(NULLIF(EXCLUDED.image_url, ''), templates.image_url),
            category = EXCLUDED.category,
            updated_at = EXCLUDED.updated_at
        RETURNING `+templateColumns,
		template.ID,
		template.Title,
		template.Description,
		template.Price,
		template.ImageURL,
		template.Category,
		template.CreatedAt.UTC(),
		template.UpdatedAt.UTC(),
	)
	if err != nil {
		return domain.Template{}, wrapError("templates.upsert", err)
	}
	record, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[templateRow])
	if err != nil {
		return domain.Template{}, wrapError("templates.upsert", err)
	}
	return record.toDomain(), nil
}

func (r *TemplateRepository) UpdateImageURL(ctx context.Context, templateID, imageURL string) error {
	templateID = strings.TrimSpace(templateID)
	if templateID == "" {
		return errors.New("template repository: template id is required")
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE templates SET image_url = $2, updated_at = NOW() WHERE id = $1`,
		templateID, imageURL,
	)
	if err != nil {
		return wrapError("templates.update_image", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("templates.update_image", templateID)
	}
	return nil
}

type templateRow struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Price       float64   `db:"price"`
	ImageURL    string    `db:"image_url"`
	Category    string    `db:"category"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r templateRow) toDomain() domain.Template {
	return domain.Template{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Price:       r.Price,
		ImageURL:    r.ImageURL,
		Category:    r.Category,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

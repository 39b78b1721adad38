package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	domain "github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/domain"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/repositories"
)

const (
	maxTemplateListLimit = 100
	maxTemplateTitle     = 120
	maxTemplateSeeds     = 200
)

var (
	// ErrCatalogInvalidInput indicates a seed or lookup was malformed.
	ErrCatalogInvalidInput = errors.New("catalog: invalid input")
	// ErrTemplateNotFound indicates the requested template does not exist.
	ErrTemplateNotFound = errors.New("catalog: template not found")
)

// DefaultTemplateSeeds returns the launch catalog.
func DefaultTemplateSeeds() []TemplateSeed {
	return []TemplateSeed{
		{ID: "snowy-pine", Title: "Snowy Pine", Description: "A cozy snowy theme with pine trees.", Price: 1.49, Category: "holiday"},
		{ID: "modern-minimal", Title: "Modern Minimal", Description: "Sleek and modern, great for *business* cards.", Price: 1.79, Category: "business"},
		{ID: "classic-wreath", Title: "Classic Wreath", Description: "Traditional wreath design with gold foil accents.", Price: 1.99, Category: "holiday"},
	}
}

// CatalogServiceDeps wires the catalog service.
type CatalogServiceDeps struct {
	Templates repositories.TemplateRepository
	Events    EventPublisher
	Clock     func() time.Time
	Logger    func(ctx context.Context, event string, fields map[string]any)
}

type catalogService struct {
	templates repositories.TemplateRepository
	markdown  goldmark.Markdown
	policy    *bluemonday.Policy
	events    eventEmitter
	now       func() time.Time
	logger    func(context.Context, string, map[string]any)
}

var _ CatalogService = (*catalogService)(nil)

// NewCatalogService constructs the catalog service.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Templates == nil {
		return nil, errors.New("catalog service: template repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	now := func() time.Time { return clock().UTC() }
	return &catalogService{
		templates: deps.Templates,
		markdown:  goldmark.New(),
		policy:    bluemonday.UGCPolicy(),
		events:    newEventEmitter(deps.Events, logger, now),
		now:       now,
		logger:    logger,
	}, nil
}

func (s *catalogService) ListTemplates(ctx context.Context, limit int) ([]TemplateSummary, error) {
	if limit <= 0 || limit > maxTemplateListLimit {
		limit = maxTemplateListLimit
	}
	templates, err := s.templates.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: list templates: %w", err)
	}
	summaries := make([]TemplateSummary, 0, len(templates))
	for _, template := range templates {
		summaries = append(summaries, s.summarize(template))
	}
	return summaries, nil
}

func (s *catalogService) GetTemplate(ctx context.Context, templateID string) (TemplateSummary, error) {
	templateID = strings.TrimSpace(templateID)
	if templateID == "" {
		return TemplateSummary{}, fmt.Errorf("%w: template id is required", ErrCatalogInvalidInput)
	}
	template, err := s.templates.FindByID(ctx, templateID)
	if err != nil {
		if isRepoNotFound(err) {
			return TemplateSummary{}, ErrTemplateNotFound
		}
		return TemplateSummary{}, fmt.Errorf("catalog: get template: %w", err)
	}
	return s.summarize(template), nil
}

// SeedTemplates validates every seed before writing any. Seeds are upserted in order
// and each gets a later created_at than the one before, so the last seed lists first.
func (s *catalogService) SeedTemplates(ctx context.Context, seeds []TemplateSeed) ([]TemplateSummary, error) {
	if len(seeds) == 0 || len(seeds) > maxTemplateSeeds {
		return nil, fmt.Errorf("%w: between 1 and %d templates are required", ErrCatalogInvalidInput, maxTemplateSeeds)
	}
	prepared := make([]domain.Template, 0, len(seeds))
	seen := make(map[string]struct{}, len(seeds))
	for i, seed := range seeds {
		template, err := templateFromSeed(seed)
		if err != nil {
			return nil, fmt.Errorf("%w: seed %d: %v", ErrCatalogInvalidInput, i, err)
		}
		if _, dup := seen[template.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate template id %q", ErrCatalogInvalidInput, template.ID)
		}
		seen[template.ID] = struct{}{}
		prepared = append(prepared, template)
	}

	now := s.now()
	out := make([]TemplateSummary, 0, len(prepared))
	for i, template := range prepared {
		template.CreatedAt = now.Add(time.Duration(i) * time.Millisecond)
		template.UpdatedAt = template.CreatedAt
		stored, err := s.templates.Upsert(ctx, template)
		if err != nil {
			return out, fmt.Errorf("catalog: upsert template %s: %w", template.ID, err)
		}
		out = append(out, s.summarize(stored))
	}

	ids := make([]string, 0, len(out))
	for _, summary := range out {
		ids = append(ids, summary.ID)
	}
	s.logger(ctx, "catalog.templates.seeded", map[string]any{"count": len(out)})
	s.events.emit(ctx, EventTemplatesSeeded, "templates", map[string]any{"templateIds": ids})
	return out, nil
}

func (s *catalogService) summarize(template domain.Template) TemplateSummary {
	return TemplateSummary{
		Template:        template,
		DescriptionHTML: s.renderDescription(template.Description),
		PriceCents:      template.PriceCents(),
	}
}

func (s *catalogService) renderDescription(description string) string {
	if strings.TrimSpace(description) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(description), &buf); err != nil {
		return s.policy.Sanitize(description)
	}
	return strings.TrimSpace(string(s.policy.SanitizeBytes(buf.Bytes())))
}

func templateFromSeed(seed TemplateSeed) (domain.Template, error) {
	title := strings.TrimSpace(seed.Title)
	if title == "" {
		return domain.Template{}, errors.New("title is required")
	}
	if len([]rune(title)) > maxTemplateTitle {
		return domain.Template{}, fmt.Errorf("title exceeds %d characters", maxTemplateTitle)
	}
	if math.IsNaN(seed.Price) || math.IsInf(seed.Price, 0) || seed.Price < 0 {
		return domain.Template{}, errors.New("price must be a non-negative number")
	}
	id := strings.TrimSpace(seed.ID)
	if id == "" {
		id = Slugify(title)
	}
	if id == "" || strings.Contains(id, "/") {
		return domain.Template{}, fmt.Errorf("invalid template id %q", id)
	}
	return domain.Template{
		ID:          id,
		Title:       title,
		Description: strings.TrimSpace(seed.Description),
		Price:       float64(domain.CentsFromPrice(seed.Price)) / 100,
		ImageURL:    strings.TrimSpace(seed.ImageURL),
		Category:    strings.ToLower(strings.TrimSpace(seed.Category)),
	}, nil
}

// Slugify derives a URL-safe identifier from a title: accents are stripped, letters are
// lower-cased and every other run of characters becomes one hyphen.
func Slugify(title string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), title)
	if err != nil {
		folded = title
	}
	var b strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			hyphen = false
		case b.Len() > 0 && !hyphen:
			b.WriteByte('-')
			hyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func isRepoNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.IsNotFound()
	}
	return false
}

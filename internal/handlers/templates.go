package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/httpx"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/requestctx"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/services"
)

// TemplateHandlers serve the public card catalog.
type TemplateHandlers struct {
	catalog services.CatalogService
}

// NewTemplateHandlers constructs catalog handlers.
func NewTemplateHandlers(catalog services.CatalogService) *TemplateHandlers {
	return &TemplateHandlers{catalog: catalog}
}

// Routes registers catalog endpoints relative to the /templates mount.
func (h *TemplateHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listTemplates)
	r.Get("/{templateID}", h.getTemplate)
}

type templatePayload struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Description     string  `json:"description,omitempty"`
	DescriptionHTML string  `json:"description_html,omitempty"`
	Price           float64 `json:"price"`
	PriceCents      int64   `json:"price_cents"`
	ImageURL        string  `json:"image_url,omitempty"`
	Category        string  `json:"category,omitempty"`
	CreatedAt       string  `json:"created_at,omitempty"`
	UpdatedAt       string  `json:"updated_at,omitempty"`
}

type templateListResponse struct {
	Templates []templatePayload `json:"templates"`
}

func (h *TemplateHandlers) listTemplates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	summaries, err := h.catalog.ListTemplates(ctx, limit)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, templateListResponse{Templates: toTemplatePayloads(summaries)})
}

func (h *TemplateHandlers) getTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}
	summary, err := h.catalog.GetTemplate(ctx, strings.TrimSpace(chi.URLParam(r, "templateID")))
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, toTemplatePayload(summary))
}

func writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrTemplateNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("template_not_found", "template not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.BadRequest("invalid_request", err.Error()))
	default:
		requestctx.Logger(ctx).Error("catalog: request failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.Upstream("catalog_error", upstreamCause(err)))
	}
}

func toTemplatePayloads(summaries []services.TemplateSummary) []templatePayload {
	out := make([]templatePayload, 0, len(summaries))
	for _, summary := range summaries {
		out = append(out, toTemplatePayload(summary))
	}
	return out
}

func toTemplatePayload(summary services.TemplateSummary) templatePayload {
	return templatePayload{
		ID:              summary.ID,
		Title:           summary.Title,
		Description:     summary.Description,
		DescriptionHTML: summary.DescriptionHTML,
		Price:           summary.Price,
		PriceCents:      summary.PriceCents,
		ImageURL:        summary.ImageURL,
		Category:        summary.Category,
		CreatedAt:       formatTime(summary.CreatedAt),
		UpdatedAt:       formatTime(summary.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

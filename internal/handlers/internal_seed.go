package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/auth"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/httpx"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/requestctx"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/services"
)

const maxSeedRequestBody = 256 * 1024

// InternalHandlers serve service-to-service maintenance endpoints mounted under /internal.
type InternalHandlers struct {
	catalog services.CatalogService
}

// NewInternalHandlers constructs internal handlers.
func NewInternalHandlers(catalog services.CatalogService) *InternalHandlers {
	return &InternalHandlers{catalog: catalog}
}

// Routes registers internal endpoints.
func (h *InternalHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/templates/seed", h.seedTemplates)
}

type seedTemplatePayload struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"image_url"`
	Category    string  `json:"category"`
}

type seedTemplatesRequest struct {
	Templates []seedTemplatePayload `json:"templates"`
}

type seedTemplatesResponse struct {
	Count     int               `json:"count"`
	Templates []templatePayload `json:"templates"`
}

// seedTemplates upserts the posted templates, or the launch catalog when the body is empty.
func (h *InternalHandlers) seedTemplates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}
	var req seedTemplatesRequest
	if !decodeJSONBody(w, r, maxSeedRequestBody, true, &req) {
		return
	}

	seeds := services.DefaultTemplateSeeds()
	if len(req.Templates) > 0 {
		seeds = make([]services.TemplateSeed, 0, len(req.Templates))
		for _, t := range req.Templates {
			seeds = append(seeds, services.TemplateSeed{
				ID:          t.ID,
				Title:       t.Title,
				Description: t.Description,
				Price:       t.Price,
				ImageURL:    t.ImageURL,
				Category:    t.Category,
			})
		}
	}

	summaries, err := h.catalog.SeedTemplates(ctx, seeds)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	fields := []zap.Field{zap.Int("count", len(summaries))}
	if svc, ok := auth.ServiceIdentityFromContext(ctx); ok {
		fields = append(fields, zap.String("caller", svc.Email))
	}
	requestctx.Logger(ctx).Info("internal: templates seeded", fields...)

	writeJSONResponse(w, http.StatusOK, seedTemplatesResponse{Count: len(summaries), Templates: toTemplatePayloads(summaries)})
}

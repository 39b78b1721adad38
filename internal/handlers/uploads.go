package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/auth"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/httpx"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/requestctx"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/services"
)

// Base64 inflates the 8 MiB image cap by a third; the rest is JSON framing.
const maxUploadRequestBody = 12 << 20

// UploadHandlers accept admin template image uploads.
type UploadHandlers struct {
	authn   *auth.Authenticator
	uploads services.TemplateUploadService
}

// NewUploadHandlers constructs upload handlers. A nil authenticator leaves the endpoint
// open, matching deployments without Firebase.
func NewUploadHandlers(authn *auth.Authenticator, uploads services.TemplateUploadService) *UploadHandlers {
	return &UploadHandlers{authn: authn, uploads: uploads}
}

// Routes registers POST /upload-template.
func (h *UploadHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	group := r
	if h.authn != nil {
		group = group.With(h.authn.RequireFirebaseAuth(auth.RoleAdmin))
	}
	group.Post("/upload-template", h.uploadTemplate)
}

type uploadTemplateRequest struct {
	TemplateID string `json:"templateId"`
	FileName   string `json:"filename"`
	Data       string `json:"data"`
}

type uploadTemplateResponse struct {
	URL string `json:"url"`
}

func (h *UploadHandlers) uploadTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.uploads == nil {
		httpx.WriteError(ctx, w, httpx.NewError("uploads_unavailable", "upload service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req uploadTemplateRequest
	if !decodeJSONBody(w, r, maxUploadRequestBody, false, &req) {
		return
	}

	result, err := h.uploads.UploadTemplateImage(ctx, services.UploadTemplateImageCommand{
		TemplateID: req.TemplateID,
		FileName:   req.FileName,
		DataURL:    req.Data,
	})
	if err != nil {
		var storageErr *services.UploadStorageError
		switch {
		case errors.Is(err, services.ErrUploadInvalidInput):
			httpx.WriteError(ctx, w, httpx.BadRequest("missing_parameters", "Missing parameters"))
		case errors.Is(err, services.ErrUploadInvalidDataURL):
			httpx.WriteError(ctx, w, httpx.BadRequest("invalid_data_url", "Invalid data URL"))
		case errors.As(err, &storageErr):
			httpx.WriteError(ctx, w, httpx.NewError("storage_upload_failed", "Storage upload failed: "+storageErr.Err.Error(), http.StatusInternalServerError))
		default:
			requestctx.Logger(ctx).Error("uploads: template upload failed", zap.Error(err))
			httpx.WriteError(ctx, w, httpx.Upstream("upload_error", err))
		}
		return
	}

	writeJSONResponse(w, http.StatusOK, uploadTemplateResponse{URL: result.URL})
}

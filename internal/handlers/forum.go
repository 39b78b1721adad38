package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	domain "github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/domain"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/httpx"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/requestctx"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/services"
)

const maxForumRequestBody = 8 * 1024

// ForumHandlers expose the community forum.
type ForumHandlers struct {
	forum   services.ForumService
	limiter rateLimiter
}

// ForumOption customises ForumHandlers.
type ForumOption func(*ForumHandlers)

// WithForumRateLimit caps forum writes per client per minute.
func WithForumRateLimit(perMinute int) ForumOption {
	return func(h *ForumHandlers) {
		h.limiter = newSlidingLimiter(perMinute, time.Minute, nil)
	}
}

// NewForumHandlers constructs forum handlers.
func NewForumHandlers(forum services.ForumService, opts ...ForumOption) *ForumHandlers {
	h := &ForumHandlers{forum: forum}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers forum endpoints relative to the /forum mount.
func (h *ForumHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/messages", h.listMessages)
	writes := r.With(limitByClient(h.limiter, "forum"))
	writes.Post("/messages", h.postMessage)
	writes.Post("/like", h.setLike)
}

type forumMessagePayload struct {
	ID        string `json:"id"`
	User      string `json:"user"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

type forumMessagesResponse struct {
	Messages []forumMessagePayload `json:"messages"`
}

type postMessageRequest struct {
	User string `json:"user"`
	Text string `json:"text"`
}

type postMessageResponse struct {
	Message forumMessagePayload `json:"message"`
}

type likeRequest struct {
	MessageID string `json:"messageId"`
	Action    string `json:"action"`
	UserName  string `json:"userName"`
}

type likeResponse struct {
	OK    bool  `json:"ok"`
	Count int64 `json:"count"`
}

func (h *ForumHandlers) listMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.forum == nil {
		httpx.WriteError(ctx, w, httpx.NewError("forum_unavailable", "forum service unavailable", http.StatusServiceUnavailable))
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	messages, err := h.forum.ListMessages(ctx, limit)
	if err != nil {
		writeForumError(ctx, w, err)
		return
	}
	resp := forumMessagesResponse{Messages: make([]forumMessagePayload, 0, len(messages))}
	for _, message := range messages {
		resp.Messages = append(resp.Messages, toForumMessagePayload(message))
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

func (h *ForumHandlers) postMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.forum == nil {
		httpx.WriteError(ctx, w, httpx.NewError("forum_unavailable", "forum service unavailable", http.StatusServiceUnavailable))
		return
	}
	var req postMessageRequest
	if !decodeJSONBody(w, r, maxForumRequestBody, false, &req) {
		return
	}
	message, err := h.forum.PostMessage(ctx, services.PostMessageCommand{User: req.User, Text: req.Text})
	if err != nil {
		writeForumError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, postMessageResponse{Message: toForumMessagePayload(message)})
}

func (h *ForumHandlers) setLike(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.forum == nil {
		httpx.WriteError(ctx, w, httpx.NewError("forum_unavailable", "forum service unavailable", http.StatusServiceUnavailable))
		return
	}
	var req likeRequest
	if !decodeJSONBody(w, r, maxForumRequestBody, false, &req) {
		return
	}
	if strings.TrimSpace(req.MessageID) == "" || strings.TrimSpace(req.Action) == "" {
		httpx.WriteError(ctx, w, httpx.BadRequest("missing_parameters", "Missing parameters"))
		return
	}
	result, err := h.forum.SetLike(ctx, services.SetLikeCommand{
		MessageID: req.MessageID,
		Action:    domain.LikeAction(strings.ToLower(strings.TrimSpace(req.Action))),
		UserName:  req.UserName,
	})
	if err != nil {
		writeForumError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, likeResponse{OK: true, Count: result.Count})
}

func writeForumError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, services.ErrForumInvalidInput) {
		httpx.WriteError(ctx, w, httpx.BadRequest("invalid_request", err.Error()))
		return
	}
	requestctx.Logger(ctx).Error("forum: request failed", zap.Error(err))
	httpx.WriteError(ctx, w, httpx.Upstream("forum_error", upstreamCause(err)))
}

// upstreamCause strips the service's operation prefix so the store's own message is
// surfaced.
func upstreamCause(err error) error {
	if cause := errors.Unwrap(err); cause != nil {
		return cause
	}
	return err
}

func toForumMessagePayload(message domain.ForumMessage) forumMessagePayload {
	return forumMessagePayload{
		ID:        message.ID,
		User:      message.User,
		Text:      message.Text,
		CreatedAt: message.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// parseLimit reads the optional limit query parameter. Zero means the service default.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		httpx.WriteError(r.Context(), w, httpx.BadRequest("invalid_request", "limit must be a non-negative integer"))
		return 0, false
	}
	return limit, true
}

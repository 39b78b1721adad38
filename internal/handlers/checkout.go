package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/httpx"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/requestctx"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/services"
)

const (
	maxCheckoutRequestBody   = 32 * 1024
	defaultIdempotencyHeader = "Idempotency-Key"
)

// CheckoutHandlers forwards storefront orders to the hosted payment page.
type CheckoutHandlers struct {
	checkout          services.CheckoutService
	limiter           rateLimiter
	idempotency       func(http.Handler) http.Handler
	idempotencyHeader string
}

// CheckoutOption customises CheckoutHandlers.
type CheckoutOption func(*CheckoutHandlers)

// WithCheckoutRateLimit caps checkout attempts per client per minute.
func WithCheckoutRateLimit(perMinute int) CheckoutOption {
	return func(h *CheckoutHandlers) {
		h.limiter = newSlidingLimiter(perMinute, time.Minute, nil)
	}
}

// WithCheckoutIdempotency wraps the endpoint with the given idempotency middleware. The
// key read from header is also forwarded to the payment gateway.
func WithCheckoutIdempotency(header string, mw func(http.Handler) http.Handler) CheckoutOption {
	return func(h *CheckoutHandlers) {
		h.idempotency = mw
		if header = strings.TrimSpace(header); header != "" {
			h.idempotencyHeader = header
		}
	}
}

// NewCheckoutHandlers constructs checkout handlers.
func NewCheckoutHandlers(checkout services.CheckoutService, opts ...CheckoutOption) *CheckoutHandlers {
	h := &CheckoutHandlers{checkout: checkout, idempotencyHeader: defaultIdempotencyHeader}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers POST /checkout.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	group := r.With(limitByClient(h.limiter, "checkout"))
	if h.idempotency != nil {
		group = group.With(h.idempotency)
	}
	group.Post("/checkout", h.createSession)
}

type checkoutProductData struct {
	Name string `json:"name"`
}

type checkoutPriceData struct {
	Currency    string              `json:"currency"`
	ProductData checkoutProductData `json:"product_data"`
	UnitAmount  *int64              `json:"unit_amount"`
}

type checkoutItemPayload struct {
	PriceData *checkoutPriceData `json:"price_data"`
	Quantity  int64              `json:"quantity"`
}

type checkoutRequest struct {
	Items []checkoutItemPayload `json:"items"`
}

type checkoutResponse struct {
	ID  string `json:"id"`
	URL string `json:"url,omitempty"`
}

func (h *CheckoutHandlers) createSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req checkoutRequest
	if !decodeJSONBody(w, r, maxCheckoutRequestBody, true, &req) {
		return
	}

	items := make([]services.CheckoutLineItem, 0, len(req.Items))
	for i, item := range req.Items {
		if item.PriceData == nil || item.PriceData.UnitAmount == nil {
			httpx.WriteError(ctx, w, httpx.BadRequest("invalid_request", fmt.Sprintf("items[%d].price_data.unit_amount is required", i)))
			return
		}
		items = append(items, services.CheckoutLineItem{
			Currency:   item.PriceData.Currency,
			Name:       item.PriceData.ProductData.Name,
			UnitAmount: *item.PriceData.UnitAmount,
			Quantity:   item.Quantity,
		})
	}

	session, err := h.checkout.CreateCheckoutSession(ctx, services.CreateCheckoutSessionCommand{
		Items:          items,
		IdempotencyKey: r.Header.Get(h.idempotencyHeader),
	})
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, checkoutResponse{ID: session.ID, URL: session.URL})
}

func writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w, httpx.BadRequest("invalid_request", err.Error()))
	case errors.Is(err, services.ErrCheckoutPaymentFailed):
		httpx.WriteError(ctx, w, httpx.NewError("payment_failed", services.UpstreamMessage(err), http.StatusInternalServerError))
	default:
		requestctx.Logger(ctx).Error("checkout: create session failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.Upstream("checkout_error", err))
	}
}

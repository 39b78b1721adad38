package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/payments"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/idempotency"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/services"
)

func newCheckoutRouter(h *CheckoutHandlers) http.Handler {
	return NewRouter(WithCheckoutRoutes(h.Routes))
}

func TestCheckoutHandlersCreateSession(t *testing.T) {
	var captured services.CreateCheckoutSessionCommand
	svc := &stubCheckoutService{createFn: func(_ context.Context, cmd services.CreateCheckoutSessionCommand) (services.CheckoutSession, error) {
		captured = cmd
		return services.CheckoutSession{ID: "cs_123", URL: "https://checkout.stripe.com/c/pay/cs_123"}, nil
	}}
	router := newCheckoutRouter(NewCheckoutHandlers(svc))

	body := `{"items":[{"price_data":{"currency":"usd","product_data":{"name":"Holiday Card - Snowy Pine"},"unit_amount":149},"quantity":3}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != "cs_123" {
		t.Fatalf("expected id cs_123, got %q", resp.ID)
	}
	if len(captured.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(captured.Items))
	}
	item := captured.Items[0]
	if item.UnitAmount != 149 || item.Quantity != 3 || item.Name != "Holiday Card - Snowy Pine" || item.Currency != "usd" {
		t.Fatalf("unexpected item %+v", item)
	}
}

func TestCheckoutHandlersEmptyBodyUsesServiceDefault(t *testing.T) {
	called := false
	svc := &stubCheckoutService{createFn: func(_ context.Context, cmd services.CreateCheckoutSessionCommand) (services.CheckoutSession, error) {
		called = true
		if len(cmd.Items) != 0 {
			t.Fatalf("expected no items forwarded, got %d", len(cmd.Items))
		}
		return services.CheckoutSession{ID: "cs_default"}, nil
	}}
	router := newCheckoutRouter(NewCheckoutHandlers(svc))

	req := httptest.NewRequest(http.MethodPost, "/api/checkout", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK || !called {
		t.Fatalf("expected 200 with service call, got %d", rr.Code)
	}
}

func TestCheckoutHandlersGatewayErrorMessage(t *testing.T) {
	svc := &stubCheckoutService{createFn: func(context.Context, services.CreateCheckoutSessionCommand) (services.CheckoutSession, error) {
		return services.CheckoutSession{}, fmt.Errorf("%w: %w", services.ErrCheckoutPaymentFailed, &payments.GatewayError{Message: "No such price"})
	}}
	router := newCheckoutRouter(NewCheckoutHandlers(svc))

	req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if env := decodeError(t, rr.Body.Bytes()); env.Error.Message != "No such price" {
		t.Fatalf("expected gateway message, got %q", env.Error.Message)
	}
}

func TestCheckoutHandlersValidation(t *testing.T) {
	svc := &stubCheckoutService{createFn: func(context.Context, services.CreateCheckoutSessionCommand) (services.CheckoutSession, error) {
		return services.CheckoutSession{}, fmt.Errorf("%w: items[0].quantity must be at least 1", services.ErrCheckoutInvalidInput)
	}}
	router := newCheckoutRouter(NewCheckoutHandlers(svc))

	cases := map[string]string{
		"malformed json":      `{"items":`,
		"missing unit amount": `{"items":[{"price_data":{"currency":"usd","product_data":{"name":"Card"}},"quantity":1}]}`,
		"service rejects":     `{"items":[{"price_data":{"currency":"usd","product_data":{"name":"Card"},"unit_amount":100},"quantity":0}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(body))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestCheckoutHandlersRateLimit(t *testing.T) {
	svc := &stubCheckoutService{createFn: func(context.Context, services.CreateCheckoutSessionCommand) (services.CheckoutSession, error) {
		return services.CheckoutSession{ID: "cs_1"}, nil
	}}
	router := newCheckoutRouter(NewCheckoutHandlers(svc, WithCheckoutRateLimit(1)))

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodPost, "/api/checkout", nil)
		req.RemoteAddr = "203.0.113.9:4000"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != want {
			t.Fatalf("request %d: expected %d, got %d", i, want, rr.Code)
		}
	}
}

func TestCheckoutHandlersIdempotentReplay(t *testing.T) {
	calls := 0
	svc := &stubCheckoutService{createFn: func(context.Context, services.CreateCheckoutSessionCommand) (services.CheckoutSession, error) {
		calls++
		return services.CheckoutSession{ID: fmt.Sprintf("cs_%d", calls)}, nil
	}}
	h := NewCheckoutHandlers(svc, WithCheckoutIdempotency("Idempotency-Key", idempotency.Middleware(idempotency.NewMemoryStore())))
	r := chi.NewRouter()
	h.Routes(r)

	var bodies []string
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(`{}`))
		req.Header.Set("Idempotency-Key", "order-1")
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rr.Code)
		}
		bodies = append(bodies, rr.Body.String())
		if i == 1 && rr.Header().Get(idempotency.ReplayHeader) == "" {
			t.Fatalf("expected replay header on second response")
		}
	}
	if calls != 1 {
		t.Fatalf("expected one service call, got %d", calls)
	}
	if bodies[0] != bodies[1] {
		t.Fatalf("expected identical bodies, got %q and %q", bodies[0], bodies[1])
	}
}

func TestCheckoutHandlersUnexpectedError(t *testing.T) {
	svc := &stubCheckoutService{createFn: func(context.Context, services.CreateCheckoutSessionCommand) (services.CheckoutSession, error) {
		return services.CheckoutSession{}, errors.New("boom")
	}}
	router := newCheckoutRouter(NewCheckoutHandlers(svc))
	req := httptest.NewRequest(http.MethodPost, "/api/checkout", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}

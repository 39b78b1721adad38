package wizard

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/apiclient"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/handlers"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/payments"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/idempotency"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/services"
)

// slowGateway holds its first session until release is closed.
type slowGateway struct {
	entered chan struct{}
	release chan struct{}

	mu    sync.Mutex
	calls []payments.CheckoutSessionRequest
}

func (g *slowGateway) CreateCheckoutSession(_ context.Context, req payments.CheckoutSessionRequest) (payments.CheckoutSession, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	n := len(g.calls)
	g.mu.Unlock()
	if n == 1 {
		close(g.entered)
		<-g.release
	}
	return payments.CheckoutSession{ID: fmt.Sprintf("cs_%d", n)}, nil
}

func (g *slowGateway) requests() []payments.CheckoutSessionRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]payments.CheckoutSessionRequest(nil), g.calls...)
}

func TestSubmitAfterTimeoutAndEditReachesGatewayAgain(t *testing.T) {
	gateway := &slowGateway{entered: make(chan struct{}), release: make(chan struct{})}
	svc, err := services.NewCheckoutService(services.CheckoutServiceDeps{Payments: gateway})
	require.NoError(t, err)

	store := idempotency.NewMemoryStore()
	checkout := handlers.NewCheckoutHandlers(svc,
		handlers.WithCheckoutIdempotency("Idempotency-Key", idempotency.Middleware(store)))
	router := handlers.NewRouter(handlers.WithCheckoutRoutes(checkout.Routes))

	var inflight sync.WaitGroup
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inflight.Add(1)
		defer inflight.Done()
		router.ServeHTTP(w, r)
	}))
	defer srv.Close()

	client, err := apiclient.NewClient(srv.URL)
	require.NoError(t, err)

	var keys int
	w := New(client, WithIdempotencyKeys(func() string {
		keys++
		return fmt.Sprintf("order-%d", keys)
	}))
	w.SelectTemplate(Template{ID: "snowy-pine", Title: "Snowy Pine", Price: 1.49})
	require.NoError(t, w.Next())
	w.SetCustomerName("Ana")
	w.SetRecipientName("Ben")
	require.NoError(t, w.Next())
	require.NoError(t, w.Next())
	w.SetQuantity(2)

	// the shopper gives up while the gateway is still working
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-gateway.entered
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err = w.Submit(ctx)
	require.Error(t, err)
	assert.Equal(t, StepReview, w.Step())

	// the server still finishes and stores the first answer
	close(gateway.release)
	inflight.Wait()

	w.SetQuantity(3)
	url, err := w.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(url, "cs_2"), url)

	calls := gateway.requests()
	require.Len(t, calls, 2)
	assert.Equal(t, "order-1", calls[0].IdempotencyKey)
	assert.Equal(t, "order-2", calls[1].IdempotencyKey)
	assert.EqualValues(t, 3, calls[1].Items[0].Quantity)
}

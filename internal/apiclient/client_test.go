package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL+"/", opts...)
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient("  ")
	require.ErrorIs(t, err, ErrMissingBaseURL)
}

func TestCreateCheckoutSessionSendsWireShape(t *testing.T) {
	var got map[string]any
	var key string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/checkout", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		key = r.Header.Get("Idempotency-Key")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"id":"cs_123","url":"https://checkout.stripe.com/c/pay/cs_123"}`)
	})

	session, err := c.CreateCheckoutSession(context.Background(), CheckoutRequest{
		Items:          []LineItem{{Currency: "usd", ProductName: "Holiday Card - Snowy Pine", UnitAmount: 149, Quantity: 3}},
		IdempotencyKey: "draft-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_123", session.ID)
	assert.Equal(t, "draft-1", key)

	items := got["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	priceData := item["price_data"].(map[string]any)
	assert.Equal(t, "usd", priceData["currency"])
	assert.EqualValues(t, 149, priceData["unit_amount"])
	assert.Equal(t, "Holiday Card - Snowy Pine", priceData["product_data"].(map[string]any)["name"])
	assert.EqualValues(t, 3, item["quantity"])
}

func TestErrorEnvelopeIsDecoded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"code":"checkout_failed","message":"Your card was declined.","status":500}}`)
	})

	_, err := c.CreateCheckoutSession(context.Background(), CheckoutRequest{})
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "checkout_failed", apiErr.Code)
	assert.Equal(t, "Your card was declined.", apiErr.Message)
}

func TestErrorWithStringPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"Missing parameters"}`)
	})

	_, err := c.UploadTemplateImage(context.Background(), "", "", "")
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Missing parameters", apiErr.Message)
}

func TestListForumMessagesAndLike(t *testing.T) {
	created := time.Date(2024, 12, 24, 9, 0, 0, 0, time.UTC)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/forum/messages":
			assert.Equal(t, "50", r.URL.Query().Get("limit"))
			_ = json.NewEncoder(w).Encode(map[string]any{"messages": []map[string]any{
				{"id": "m1", "user": "Ana", "text": "Merry!", "created_at": created.Format(time.RFC3339Nano)},
			}})
		case "/api/forum/like":
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "m1", body["messageId"])
			assert.Equal(t, "like", body["action"])
			_, hasUser := body["userName"]
			assert.False(t, hasUser)
			_, _ = io.WriteString(w, `{"ok":true,"count":2}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	msgs, err := c.ListForumMessages(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.True(t, created.Equal(msgs[0].CreatedAt))

	count, err := c.SetLike(context.Background(), "m1", "like", " ")
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestBearerTokenIsSent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer admin-token", r.Header.Get("Authorization"))
		assert.Equal(t, "/api/admin/session/clear", r.URL.Path)
		_, _ = io.WriteString(w, `{"ok":true}`)
	}, WithBearerToken("admin-token"))

	require.NoError(t, c.ClearSession(context.Background()))
}

func TestSeedTemplatesWithoutEntriesSendsNoBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		assert.Empty(t, raw)
		_, _ = io.WriteString(w, `{"count":1,"templates":[{"id":"snowy-pine","title":"Snowy Pine","price":1.49}]}`)
	})

	templates, err := c.SeedTemplates(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, "snowy-pine", templates[0].ID)
}

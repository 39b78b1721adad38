package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/requestctx"
)

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env struct {
		Error map[string]any `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env.Error
}

func TestWriteErrorFillsTraceAndKeepsReservedKeys(t *testing.T) {
	ctx := requestctx.WithTrace(context.Background(), requestctx.TraceInfo{TraceID: "4bf92f35"})
	rr := httptest.NewRecorder()
	WriteError(ctx, rr, BadRequest("missing_names", "Customer and recipient names are required").
		WithDetails(map[string]any{"field": "recipientName", "status": 999}))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("code = %d", rr.Code)
	}
	body := decode(t, rr)
	if body["code"] != "missing_names" || body["field"] != "recipientName" {
		t.Fatalf("unexpected body %v", body)
	}
	if body["status"] != float64(http.StatusBadRequest) {
		t.Fatalf("details must not override status, got %v", body["status"])
	}
	if body["trace_id"] != "4bf92f35" {
		t.Fatalf("trace id = %v", body["trace_id"])
	}
	if _, ok := body["request_id"]; ok {
		t.Fatalf("request id should be omitted without chi's RequestID middleware")
	}
}

func TestUpstreamPassesMessageThrough(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(context.Background(), rr, Upstream("stripe_error", errors.New("No such price: 'price_123'")))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d", rr.Code)
	}
	if body := decode(t, rr); body["message"] != "No such price: 'price_123'" {
		t.Fatalf("message = %v", body["message"])
	}

	if got := Upstream("x", nil).Message; got != "upstream service failed" {
		t.Fatalf("nil error message = %q", got)
	}
}

func TestClipRespectsRuneBoundaries(t *testing.T) {
	if got := clip("line one\nline two", 80); got != "line one line two" {
		t.Fatalf("clip newline = %q", got)
	}
	got := clip(strings.Repeat("é", 10), 5)
	if got != "éé" {
		t.Fatalf("clip utf8 = %q", got)
	}
}

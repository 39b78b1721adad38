// Package httpx holds the JSON error envelope shared by every storefront endpoint.
package httpx

import (
	"context"
	"encoding/json"
	"maps"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/requestctx"
)

// Error is the JSON error envelope returned by the storefront API:
//
//	{"error": {"code": "...", "message": "...", "status": 400, "request_id": "..."}}
//
// Details are merged into the object without overriding the standard keys.
type Error struct {
	Code      string
	Message   string
	Status    int
	RequestID string
	TraceID   string
	Details   map[string]any
}

var reservedKeys = []string{"code", "message", "status", "request_id", "trace_id"}

// NewError builds an envelope. Status 0 becomes 500.
func NewError(code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{Code: clip(code, 80), Message: clip(message, 512), Status: status}
}

// BadRequest builds a 400 validation error.
func BadRequest(code, message string) Error {
	return NewError(code, message, http.StatusBadRequest)
}

// Upstream builds a 500 that carries the upstream failure message, as the checkout and
// upload endpoints report Stripe and storage errors verbatim.
func Upstream(code string, err error) Error {
	message := "upstream service failed"
	if err != nil {
		if m := strings.TrimSpace(err.Error()); m != "" {
			message = m
		}
	}
	return NewError(code, message, http.StatusInternalServerError)
}

// WithDetails returns a copy of e carrying extra fields.
func (e Error) WithDetails(details map[string]any) Error {
	if len(details) > 0 {
		e.Details = maps.Clone(details)
	}
	return e
}

func (e Error) body(ctx context.Context) map[string]any {
	body := make(map[string]any, len(e.Details)+len(reservedKeys))
	maps.Copy(body, e.Details)
	body["code"] = e.Code
	body["message"] = e.Message
	body["status"] = e.Status

	requestID := e.RequestID
	if requestID == "" {
		requestID = clip(middleware.GetReqID(ctx), 80)
	}
	traceID := e.TraceID
	if traceID == "" {
		traceID = clip(requestctx.TraceID(ctx), 64)
	}
	for key, value := range map[string]string{"request_id": requestID, "trace_id": traceID} {
		if value != "" {
			body[key] = value
		} else {
			delete(body, key)
		}
	}
	return body
}

// WriteError writes err with its status, filling request and trace ids from ctx.
func WriteError(ctx context.Context, w http.ResponseWriter, err Error) {
	if err.Status == 0 {
		err.Status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": err.body(ctx)})
}

// clip flattens newlines and truncates to at most limit bytes on a rune boundary.
func clip(value string, limit int) string {
	value = strings.TrimSpace(strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(value))
	if len(value) <= limit {
		return value
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}

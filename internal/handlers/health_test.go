package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	domain "github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/domain"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/services"
)

var probeTime = time.Date(2024, 12, 20, 9, 0, 0, 0, time.UTC)

type readyzBody struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Checks   map[string]readyzCheck
	Features map[string]bool `json:"features"`
	Details  []string        `json:"details"`
}

func probe(t *testing.T, h http.HandlerFunc, path string) (int, []byte) {
	t.Helper()
	rr := httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodGet, path, nil))
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("%s: expected json content type, got %q", path, ct)
	}
	return rr.Code, rr.Body.Bytes()
}

func TestHealthzReportsBuildAndUptime(t *testing.T) {
	h := NewHealthHandlers(
		WithHealthBuildInfo(services.BuildInfo{Version: "2024.12.1", Environment: "staging", StartedAt: probeTime.Add(-90 * time.Second)}),
		WithHealthClock(func() time.Time { return probeTime }),
	)
	code, raw := probe(t, h.Healthz, "/healthz")
	if code != http.StatusOK {
		t.Fatalf("healthz: got %d", code)
	}
	var body healthzResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := healthzResponse{
		Status:      domain.HealthStatusOK,
		Version:     "2024.12.1",
		Environment: "staging",
		Uptime:      "1m30s",
		Timestamp:   "2024-12-20T09:00:00Z",
	}
	if body != want {
		t.Fatalf("healthz body = %+v, want %+v", body, want)
	}
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name        string
		system      services.SystemService
		wantCode    int
		wantStatus  string
		wantDetails []string
		check       func(t *testing.T, body readyzBody)
	}{
		{
			name:       "no system service",
			wantCode:   http.StatusOK,
			wantStatus: domain.HealthStatusOK,
		},
		{
			name: "all checks pass",
			system: &stubSystemService{report: services.SystemHealthReport{
				Status:   domain.HealthStatusOK,
				Uptime:   2 * time.Hour,
				Features: map[string]bool{"catalog": true, "checkout": true},
				Checks: map[string]domain.SystemHealthCheck{
					"postgres": {Status: domain.HealthStatusOK, Latency: 4 * time.Millisecond, CheckedAt: probeTime},
				},
			}},
			wantCode:   http.StatusOK,
			wantStatus: domain.HealthStatusOK,
			check: func(t *testing.T, body readyzBody) {
				if body.Uptime != "2h0m0s" {
					t.Fatalf("uptime = %q", body.Uptime)
				}
				if pg := body.Checks["postgres"]; pg.LatencyMS != 4 || pg.CheckedAt == "" {
					t.Fatalf("postgres check = %+v", pg)
				}
				if !body.Features["checkout"] {
					t.Fatalf("features = %v", body.Features)
				}
			},
		},
		{
			name: "degraded dependency and disabled feature",
			system: &stubSystemService{report: services.SystemHealthReport{
				Status: domain.HealthStatusDegraded,
				Checks: map[string]domain.SystemHealthCheck{
					"storage":          {Status: domain.HealthStatusDegraded, Error: "bucket unreachable"},
					"feature:checkout": {Status: domain.HealthStatusDegraded, Detail: "disabled by configuration"},
					"firestore":        {Status: domain.HealthStatusOK},
				},
			}},
			wantCode:    http.StatusServiceUnavailable,
			wantStatus:  domain.HealthStatusDegraded,
			wantDetails: []string{"feature:checkout: degraded", "storage: bucket unreachable"},
		},
		{
			name:        "report failure",
			system:      &stubSystemService{err: errors.New("collector offline")},
			wantCode:    http.StatusServiceUnavailable,
			wantStatus:  domain.HealthStatusError,
			wantDetails: []string{"collector offline"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := []HealthOption{WithHealthClock(func() time.Time { return probeTime })}
			if tt.system != nil {
				opts = append(opts, WithHealthSystemService(tt.system))
			}
			code, raw := probe(t, NewHealthHandlers(opts...).Readyz, "/readyz")
			if code != tt.wantCode {
				t.Fatalf("code = %d, want %d", code, tt.wantCode)
			}
			var body readyzBody
			if err := json.Unmarshal(raw, &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != tt.wantStatus {
				t.Fatalf("status = %q, want %q", body.Status, tt.wantStatus)
			}
			if !slices.Equal(body.Details, tt.wantDetails) {
				t.Fatalf("details = %v, want %v", body.Details, tt.wantDetails)
			}
			if tt.check != nil {
				tt.check(t, body)
			}
		})
	}
}

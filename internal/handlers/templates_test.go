package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	domain "github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/domain"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/services"
)

func summary(id string, price float64) services.TemplateSummary {
	tpl := domain.Template{ID: id, Title: strings.ToUpper(id), Price: price}
	return services.TemplateSummary{Template: tpl, PriceCents: tpl.PriceCents()}
}

func TestTemplateHandlersList(t *testing.T) {
	svc := &stubCatalogService{listFn: func(context.Context, int) ([]services.TemplateSummary, error) {
		return []services.TemplateSummary{summary("classic-wreath", 1.99), summary("snowy-pine", 1.49)}, nil
	}}
	router := NewRouter(WithTemplateRoutes(NewTemplateHandlers(svc).Routes))

	req := httptest.NewRequest(http.MethodGet, "/api/templates", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp struct {
		Templates []struct {
			ID         string  `json:"id"`
			Price      float64 `json:"price"`
			PriceCents int64   `json:"price_cents"`
		} `json:"templates"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Templates) != 2 || resp.Templates[0].ID != "classic-wreath" || resp.Templates[0].PriceCents != 199 {
		t.Fatalf("unexpected templates %+v", resp.Templates)
	}
}

func TestTemplateHandlersGet(t *testing.T) {
	svc := &stubCatalogService{getFn: func(_ context.Context, id string) (services.TemplateSummary, error) {
		if id != "snowy-pine" {
			return services.TemplateSummary{}, services.ErrTemplateNotFound
		}
		return summary(id, 1.49), nil
	}}
	router := NewRouter(WithTemplateRoutes(NewTemplateHandlers(svc).Routes))

	req := httptest.NewRequest(http.MethodGet, "/api/templates/snowy-pine", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/templates/missing", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if env := decodeError(t, rr.Body.Bytes()); env.Error.Code != "template_not_found" {
		t.Fatalf("unexpected code %q", env.Error.Code)
	}
}

func TestInternalHandlersSeedDefaults(t *testing.T) {
	var seeded []services.TemplateSeed
	svc := &stubCatalogService{seedFn: func(_ context.Context, seeds []services.TemplateSeed) ([]services.TemplateSummary, error) {
		seeded = seeds
		out := make([]services.TemplateSummary, 0, len(seeds))
		for _, s := range seeds {
			out = append(out, summary(s.ID, s.Price))
		}
		return out, nil
	}}
	router := NewRouter(WithInternalRoutes(NewInternalHandlers(svc).Routes))

	req := httptest.NewRequest(http.MethodPost, "/internal/templates/seed", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(seeded) != len(services.DefaultTemplateSeeds()) {
		t.Fatalf("expected default seeds, got %d", len(seeded))
	}

	req = httptest.NewRequest(http.MethodPost, "/internal/templates/seed", strings.NewReader(`{"templates":[{"title":"Gold Star","price":2.25}]}`))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if len(seeded) != 1 || seeded[0].Title != "Gold Star" || seeded[0].Price != 2.25 {
		t.Fatalf("unexpected seeds %+v", seeded)
	}
}

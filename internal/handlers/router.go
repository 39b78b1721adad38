package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/httpx"
)

// RouteRegistrar registers a set of routes against the provided router.
type RouteRegistrar func(r chi.Router)

type groupName string

const (
	groupTemplates groupName = "templates"
	groupForum     groupName = "forum"
	groupAdmin     groupName = "admin"
	groupCheckout  groupName = "checkout"
	groupUploads   groupName = "uploads"
)

// apiGroup is one slot under /api. Subtree groups own a prefix; the others are single
// routes registered on the /api router itself.
type apiGroup struct {
	name    groupName
	path    string
	subtree bool
}

var apiGroups = []apiGroup{
	{name: groupTemplates, path: "/templates", subtree: true},
	{name: groupForum, path: "/forum", subtree: true},
	{name: groupAdmin, path: "/admin", subtree: true},
	{name: groupCheckout, path: "/checkout"},
	{name: groupUploads, path: "/upload-template"},
}

type routerConfig struct {
	middlewares []func(http.Handler) http.Handler
	health      *HealthHandlers
	groups      map[groupName]RouteRegistrar

	internal            RouteRegistrar
	internalMiddlewares []func(http.Handler) http.Handler
}

// Option customises the router configuration before construction.
type Option func(*routerConfig)

const (
	apiPrefix      = "/api"
	requestTimeout = 60 * time.Second
)

// NewRouter builds the storefront HTTP surface. Groups without a registrar answer 501.
func NewRouter(opts ...Option) chi.Router {
	cfg := routerConfig{
		middlewares: []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Timeout(requestTimeout),
		},
		groups: make(map[groupName]RouteRegistrar, len(apiGroups)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.health == nil {
		cfg.health = NewHealthHandlers()
	}

	r := chi.NewRouter()
	for _, mw := range cfg.middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeRouteError(w, req, "route_not_found", http.StatusNotFound, "no route for %s", req.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeRouteError(w, req, "method_not_allowed", http.StatusMethodNotAllowed, "method %s not allowed on %s", req.Method, req.URL.Path)
	})

	r.Get("/healthz", cfg.health.Healthz)
	r.Get("/readyz", cfg.health.Readyz)

	r.Route(apiPrefix, func(api chi.Router) {
		for _, g := range apiGroups {
			registrar := cfg.groups[g.name]
			switch {
			case g.subtree:
				api.Route(g.path, func(sub chi.Router) {
					if registrar == nil {
						stubSubtree(sub, string(g.name))
						return
					}
					registrar(sub)
				})
			case registrar != nil:
				registrar(api)
			default:
				api.HandleFunc(g.path, notImplemented(string(g.name)))
			}
		}
	})

	r.Route("/internal", func(group chi.Router) {
		for _, mw := range cfg.internalMiddlewares {
			if mw != nil {
				group.Use(mw)
			}
		}
		if cfg.internal == nil {
			stubSubtree(group, "internal")
			return
		}
		cfg.internal(group)
	})

	return r
}

func withGroup(name groupName, reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		if cfg.groups == nil {
			cfg.groups = map[groupName]RouteRegistrar{}
		}
		cfg.groups[name] = reg
	}
}

// WithMiddlewares appends additional global middleware to the router.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithCORS lets the browser storefront at origins call the API with credentials.
func WithCORS(origins []string) Option {
	return func(cfg *routerConfig) {
		if len(origins) == 0 {
			return
		}
		c := cors.New(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "Idempotency-Key", "X-Request-Id"},
			ExposedHeaders:   []string{"X-Request-Id", "X-Idempotent-Replay"},
			AllowCredentials: true,
			MaxAge:           600,
		})
		cfg.middlewares = append(cfg.middlewares, c.Handler)
	}
}

// WithHealthHandlers overrides the probe handlers.
func WithHealthHandlers(h *HealthHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.health = h
	}
}

// WithTemplateRoutes mounts the catalog under /api/templates.
func WithTemplateRoutes(reg RouteRegistrar) Option { return withGroup(groupTemplates, reg) }

// WithCheckoutRoutes registers POST /api/checkout.
func WithCheckoutRoutes(reg RouteRegistrar) Option { return withGroup(groupCheckout, reg) }

// WithUploadRoutes registers POST /api/upload-template.
func WithUploadRoutes(reg RouteRegistrar) Option { return withGroup(groupUploads, reg) }

// WithForumRoutes mounts the forum under /api/forum.
func WithForumRoutes(reg RouteRegistrar) Option { return withGroup(groupForum, reg) }

// WithAdminRoutes mounts session endpoints under /api/admin.
func WithAdminRoutes(reg RouteRegistrar) Option { return withGroup(groupAdmin, reg) }

// WithInternalRoutes mounts service-to-service endpoints under /internal.
func WithInternalRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.internal = reg
	}
}

// WithInternalMiddlewares wraps the /internal group, typically with OIDC verification.
func WithInternalMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.internalMiddlewares = append(cfg.internalMiddlewares, mw...)
	}
}

func writeRouteError(w http.ResponseWriter, req *http.Request, code string, status int, format string, args ...any) {
	httpx.WriteError(req.Context(), w, httpx.NewError(code, fmt.Sprintf(format, args...), status))
}

func notImplemented(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		writeRouteError(w, req, "not_implemented", http.StatusNotImplemented, "%s routes not implemented", name)
	}
}

func stubSubtree(r chi.Router, name string) {
	h := notImplemented(name)
	r.HandleFunc("/", h)
	r.HandleFunc("/*", h)
	r.NotFound(h)
	r.MethodNotAllowed(h)
}

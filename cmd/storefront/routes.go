package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/di"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/handlers"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/auth"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/config"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/idempotency"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/observability"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/services"
)

var errAdminAuthUnavailable = errors.New("admin authentication required but no firebase project configured")

// newRouter mounts every storefront route group. Groups whose service is missing are left
// to the router's 501 fallback.
func newRouter(logger *zap.Logger, cfg config.Config, build services.BuildInfo, svc di.Services, resources *di.Resources, replays idempotency.Store) (chi.Router, error) {
	var authenticator *auth.Authenticator
	switch {
	case resources != nil && resources.Firebase != nil:
		authenticator = auth.NewAuthenticator(resources.Firebase)
	case cfg.Auth.AdminRequired:
		return nil, errAdminAuthUnavailable
	default:
		logger.Warn("firebase not configured; template uploads are unauthenticated")
	}

	httpLogger := logger.Named("http")
	opts := []handlers.Option{
		handlers.WithMiddlewares(
			observability.TraceMiddleware(traceProjectID(cfg)),
			observability.RequestLogger(httpLogger),
			observability.Recoverer(httpLogger),
		),
		handlers.WithCORS(cfg.CORS.AllowedOrigins),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(
			handlers.WithHealthBuildInfo(build),
			handlers.WithHealthSystemService(svc.System),
		)),
		handlers.WithTemplateRoutes(handlers.NewTemplateHandlers(svc.Catalog).Routes),
		handlers.WithForumRoutes(handlers.NewForumHandlers(svc.Forum,
			handlers.WithForumRateLimit(cfg.RateLimits.ForumPerMinute),
		).Routes),
		handlers.WithAdminRoutes(handlers.NewAdminHandlers(authenticator, svc.Session).Routes),
	}

	if svc.Checkout != nil {
		replay := idempotency.Middleware(replays,
			idempotency.WithHeader(cfg.Idempotency.Header),
			idempotency.WithTTL(cfg.Idempotency.TTL),
		)
		opts = append(opts, handlers.WithCheckoutRoutes(handlers.NewCheckoutHandlers(svc.Checkout,
			handlers.WithCheckoutRateLimit(cfg.RateLimits.CheckoutPerMinute),
			handlers.WithCheckoutIdempotency(cfg.Idempotency.Header, replay),
		).Routes))
	}
	if svc.Uploads != nil {
		opts = append(opts, handlers.WithUploadRoutes(handlers.NewUploadHandlers(authenticator, svc.Uploads).Routes))
	}
	if oidc := oidcMiddleware(logger.Named("auth"), cfg.Security.OIDC); oidc != nil {
		opts = append(opts,
			handlers.WithInternalMiddlewares(oidc),
			handlers.WithInternalRoutes(handlers.NewInternalHandlers(svc.Catalog).Routes),
		)
	} else {
		logger.Warn("OIDC not configured; internal routes disabled")
	}

	return handlers.NewRouter(opts...), nil
}

// oidcMiddleware guards /internal with Google-signed service tokens. Without a JWKS URL
// the internal group stays unmounted.
func oidcMiddleware(logger *zap.Logger, cfg config.OIDCConfig) func(http.Handler) http.Handler {
	if strings.TrimSpace(cfg.JWKSURL) == "" {
		return nil
	}
	if strings.TrimSpace(cfg.Audience) == "" {
		logger.Warn("auth: OIDC audience not configured; internal routes will reject requests")
	}
	if len(cfg.Issuers) == 0 {
		logger.Warn("auth: OIDC issuers not configured; internal routes will reject requests")
	}
	validator := auth.NewOIDCValidator(auth.NewJWKSCache(cfg.JWKSURL), observability.NewPrintfAdapter(logger))
	return validator.RequireOIDC(strings.TrimSpace(cfg.Audience), cfg.Issuers)
}

func traceProjectID(cfg config.Config) string {
	for _, id := range []string{cfg.Firebase.ProjectID, cfg.Firestore.ProjectID} {
		if id = strings.TrimSpace(id); id != "" {
			return id
		}
	}
	return ""
}

package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/payments"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/config"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/observability"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/repositories"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. A nil entry means
// the backing infrastructure was not configured and the matching routes answer 501.
type Services struct {
	Catalog  services.CatalogService
	Checkout services.CheckoutService
	Uploads  services.TemplateUploadService
	Forum    services.ForumService
	System   services.SystemService
	Session  services.SessionService
}

// Infrastructure carries the external clients the services are built on. Only Registry
// is required.
type Infrastructure struct {
	Registry repositories.Registry
	Payments payments.Provider
	Uploader services.ObjectUploader
	Events   services.EventPublisher
	Revoker  services.SessionRevoker
}

// Container wires repositories, services, and background infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services

	closers []func(context.Context) error
}

// Option customises container construction.
type Option func(*containerOptions)

type containerOptions struct {
	logger  *zap.Logger
	build   services.BuildInfo
	clock   func() time.Time
	closers []func(context.Context) error
}

// WithLogger sets the base logger the service loggers derive from.
func WithLogger(logger *zap.Logger) Option {
	return func(o *containerOptions) {
		o.logger = logger
	}
}

// WithBuildInfo sets the version metadata reported by health endpoints.
func WithBuildInfo(info services.BuildInfo) Option {
	return func(o *containerOptions) {
		o.build = info
	}
}

// WithClock overrides the clock shared by every service.
func WithClock(clock func() time.Time) Option {
	return func(o *containerOptions) {
		o.clock = clock
	}
}

// WithCloser registers an extra shutdown hook, run after the repositories close.
func WithCloser(fn func(context.Context) error) Option {
	return func(o *containerOptions) {
		if fn != nil {
			o.closers = append(o.closers, fn)
		}
	}
}

// NewContainer constructs the runtime dependencies. Production wiring passes the clients
// opened by OpenInfrastructure, while tests can supply in-memory registries.
func NewContainer(ctx context.Context, cfg config.Config, infra Infrastructure, opts ...Option) (*Container, error) {
	if infra.Registry == nil {
		return nil, errors.New("repositories registry is required")
	}

	options := containerOptions{logger: zap.NewNop(), clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if options.logger == nil {
		options.logger = zap.NewNop()
	}
	if options.clock == nil {
		options.clock = time.Now
	}

	svc, err := buildServices(ctx, cfg, infra, options)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: infra.Registry,
		Services:     svc,
		closers:      options.closers,
	}, nil
}

// Close releases resources such as repository clients and the extra hooks registered
// with WithCloser. Every hook runs even when an earlier one fails.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Repositories != nil {
		if err := c.Repositories.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close repositories: %w", err))
		}
	}
	for _, fn := range c.closers {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func buildServices(_ context.Context, cfg config.Config, infra Infrastructure, opts containerOptions) (Services, error) {
	var svc Services
	reg := infra.Registry
	logger := opts.logger

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Templates: reg.Templates(),
		Events:    infra.Events,
		Clock:     opts.clock,
		Logger:    observability.EventLogger(logger.Named("catalog")),
	})
	if err != nil {
		return svc, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	forumSvc, err := services.NewForumService(services.ForumServiceDeps{
		Messages:    reg.ForumMessages(),
		Likes:       reg.ForumLikes(),
		DefaultUser: cfg.Forum.DefaultUser,
		Events:      infra.Events,
		Clock:       opts.clock,
		Logger:      observability.EventLogger(logger.Named("forum")),
	})
	if err != nil {
		return svc, fmt.Errorf("build forum service: %w", err)
	}
	svc.Forum = forumSvc

	if health := reg.Health(); health != nil {
		systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
			HealthRepository: health,
			Clock:            opts.clock,
			Build:            opts.build,
			Features:         featureSet(infra),
			RequiredFeatures: requiredFeatures(cfg.Security.Environment),
		})
		if err != nil {
			return svc, fmt.Errorf("build system service: %w", err)
		}
		svc.System = systemSvc
	}

	if infra.Payments != nil {
		checkoutSvc, err := services.NewCheckoutService(services.CheckoutServiceDeps{
			Payments: infra.Payments,
			BaseURL:  cfg.Site.BaseURL,
			Currency: cfg.Stripe.Currency,
			Events:   infra.Events,
			Clock:    opts.clock,
			Logger:   observability.EventLogger(logger.Named("checkout")),
		})
		if err != nil {
			return svc, fmt.Errorf("build checkout service: %w", err)
		}
		svc.Checkout = checkoutSvc
	}

	if infra.Uploader != nil {
		uploadSvc, err := services.NewTemplateUploadService(services.TemplateUploadServiceDeps{
			Templates: reg.Templates(),
			Uploader:  infra.Uploader,
			Bucket:    cfg.Storage.TemplatesBucket,
			Events:    infra.Events,
			Clock:     opts.clock,
			Logger:    observability.EventLogger(logger.Named("uploads")),
		})
		if err != nil {
			return svc, fmt.Errorf("build template upload service: %w", err)
		}
		svc.Uploads = uploadSvc
	}

	if infra.Revoker != nil {
		sessionSvc, err := services.NewSessionService(services.SessionServiceDeps{
			Revoker: infra.Revoker,
			Logger:  observability.EventLogger(logger.Named("admin")),
		})
		if err != nil {
			return svc, fmt.Errorf("build session service: %w", err)
		}
		svc.Session = sessionSvc
	}

	return svc, nil
}

func featureSet(infra Infrastructure) map[string]bool {
	return map[string]bool{
		services.FeatureCatalog:       true,
		services.FeatureForum:         true,
		services.FeatureCheckout:      infra.Payments != nil,
		services.FeatureUploads:       infra.Uploader != nil,
		services.FeatureEvents:        infra.Events != nil,
		services.FeatureAdminSessions: infra.Revoker != nil,
	}
}

// requiredFeatures lists what must be wired before a deployed environment reports ready.
func requiredFeatures(environment string) []string {
	if config.IsLocalEnvironment(environment) {
		return nil
	}
	return []string{services.FeatureCheckout, services.FeatureUploads}
}

// Command storefront serves the holiday card catalog, checkout, upload and forum API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/di"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/config"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/observability"
	ppostgres "github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/postgres"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/secrets"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/services"
)

const (
	shutdownGrace     = 10 * time.Second
	containerCloseMax = 5 * time.Second
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger.Named("storefront")); err != nil {
		logger.Error("storefront exited", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *zap.Logger) error {
	startedAt := time.Now().UTC()

	env, err := config.EnvironmentValues()
	if err != nil {
		return fmt.Errorf("read environment: %w", err)
	}

	fetcher, err := newSecretFetcher(ctx, logger, env)
	if err != nil {
		return fmt.Errorf("secret fetcher: %w", err)
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.ResolveSecret)),
		config.WithRequiredSecrets(requiredSecretNames(env)...),
	)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if cfg.Store.Driver == config.StoreDriverPostgres && isTruthy(env["STOREFRONT_POSTGRES_AUTO_MIGRATE"]) {
		version, err := ppostgres.Migrate(cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		logger.Info("postgres schema ready", zap.Uint("version", version))
	}

	infra, resources, err := di.OpenInfrastructure(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open infrastructure: %w", err)
	}

	build := buildInfoFromEnv(env, cfg, startedAt)
	container, err := di.NewContainer(ctx, cfg, infra,
		di.WithLogger(logger),
		di.WithBuildInfo(build),
		di.WithCloser(resources.Close),
	)
	if err != nil {
		return fmt.Errorf("build container: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), containerCloseMax)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			logger.Warn("container close error", zap.Error(err))
		}
	}()

	replays, err := newIdempotencyStore(resources)
	if err != nil {
		return err
	}

	router, err := newRouter(logger, cfg, build, container.Services, resources, replays)
	if err != nil {
		return err
	}
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr), zap.String("store", cfg.Store.Driver))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		serverLogger.Info("holiday card storefront listening")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		sweepIdempotency(gctx, replays, logger.Named("idempotency"), idempotencySweepInterval)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down; draining requests")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func buildInfoFromEnv(env map[string]string, cfg config.Config, started time.Time) services.BuildInfo {
	info := services.BuildInfo{
		Version:     strings.TrimSpace(env["STOREFRONT_BUILD_VERSION"]),
		Environment: strings.TrimSpace(cfg.Security.Environment),
		StartedAt:   started,
	}
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Environment == "" {
		info.Environment = "local"
	}
	return info
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Fetcher, error) {
	get := func(keys ...string) string {
		for _, key := range keys {
			if v := strings.TrimSpace(env[key]); v != "" {
				return v
			}
		}
		return ""
	}

	opts := []secrets.Option{secrets.WithLogger(logger.Named("secrets"))}
	if project := get("STOREFRONT_SECRETS_PROJECT_ID", "STOREFRONT_FIREBASE_PROJECT_ID"); project != "" {
		opts = append(opts, secrets.WithProject(project))
	}
	if path := get("STOREFRONT_SECRETS_FALLBACK_FILE"); path != "" {
		opts = append(opts, secrets.WithFallbackFile(path))
	}
	if creds := get("STOREFRONT_FIREBASE_CREDENTIALS_FILE"); creds != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(creds)))
	}
	return secrets.NewFetcher(ctx, opts...)
}

// requiredSecretNames lists the secrets that must resolve before the server starts. Local
// and test environments run without Stripe so the catalog and forum can be exercised alone.
func requiredSecretNames(env map[string]string) []string {
	var required []string
	if !config.IsLocalEnvironment(env["STOREFRONT_SECURITY_ENVIRONMENT"]) {
		required = append(required, "Stripe.SecretKey")
	}
	if strings.EqualFold(strings.TrimSpace(env["STOREFRONT_STORE_DRIVER"]), config.StoreDriverPostgres) {
		required = append(required, "Postgres.URL")
	}
	slices.Sort(required)
	return required
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

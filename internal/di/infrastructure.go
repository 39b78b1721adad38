package di

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"
	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/payments"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/auth"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/config"
	pfirestore "github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/firestore"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/jobs"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/observability"
	ppostgres "github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/postgres"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/storage"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/repositories"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/repositories/firestore"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/repositories/postgres"
)

// Resources holds the clients OpenInfrastructure created outside the registry.
type Resources struct {
	// Firestore is the shared provider when the store driver is firestore. It backs the
	// idempotency store as well as the repositories.
	Firestore *pfirestore.Provider
	// Firebase is set when a Firebase project is configured.
	Firebase *auth.FirebaseClient

	closers []func(context.Context) error
}

// Close releases the storage and Pub/Sub clients. The registry closes its own store.
func (r *Resources) Close(ctx context.Context) error {
	if r == nil {
		return nil
	}
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OpenInfrastructure dials every backing service the configuration names. Optional
// services (Stripe, Cloud Storage, Pub/Sub, Firebase) are skipped when unconfigured; the
// store is mandatory.
func OpenInfrastructure(ctx context.Context, cfg config.Config, logger *zap.Logger) (Infrastructure, *Resources, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var infra Infrastructure
	res := &Resources{}
	fail := func(err error) (Infrastructure, *Resources, error) {
		_ = res.Close(ctx)
		return Infrastructure{}, nil, err
	}

	var checks []repositories.DependencyCheck

	if bucket := strings.TrimSpace(cfg.Storage.TemplatesBucket); bucket != "" {
		client, err := gcs.NewClient(ctx)
		if err != nil {
			logger.Warn("cloud storage unavailable; template uploads disabled", zap.Error(err))
		} else {
			res.closers = append(res.closers, func(context.Context) error { return client.Close() })
			backend, err := storage.NewGCSBackend(client, cfg.Firestore.ProjectID)
			if err != nil {
				return fail(fmt.Errorf("storage backend: %w", err))
			}
			uploader, err := storage.NewUploader(backend, cfg.Storage.PublicBaseURL, storage.WithLogger(logger.Named("storage")))
			if err != nil {
				return fail(fmt.Errorf("storage uploader: %w", err))
			}
			infra.Uploader = uploader
			checks = append(checks, repositories.DependencyCheck{Name: "storage", Check: bucketCheck(client, bucket)})
		}
	}

	if key := strings.TrimSpace(cfg.Stripe.SecretKey); key != "" {
		provider, err := payments.NewStripeProvider(payments.StripeProviderConfig{
			APIKey: key,
			Logger: observability.EventLogger(logger.Named("stripe")),
		})
		if err != nil {
			return fail(fmt.Errorf("stripe provider: %w", err))
		}
		infra.Payments = provider
	} else {
		logger.Warn("stripe secret key not configured; checkout disabled")
	}

	if topicName := strings.TrimSpace(cfg.PubSub.EventsTopic); topicName != "" {
		client, err := pubsub.NewClient(ctx, cfg.Firestore.ProjectID)
		if err != nil {
			return fail(fmt.Errorf("pubsub client: %w", err))
		}
		topic := client.Topic(topicName)
		res.closers = append(res.closers, func(context.Context) error {
			topic.Stop()
			return client.Close()
		})
		publisher, err := jobs.NewPubSubEventPublisher(topic)
		if err != nil {
			return fail(err)
		}
		infra.Events = publisher
	}

	if strings.TrimSpace(cfg.Firebase.ProjectID) != "" {
		client, err := auth.NewFirebaseClient(ctx, cfg.Firebase)
		if err != nil {
			return fail(fmt.Errorf("firebase client: %w", err))
		}
		res.Firebase = client
		infra.Revoker = client
	}

	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		pool, err := ppostgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return fail(err)
		}
		reg, err := postgres.NewRegistry(pool, checks...)
		if err != nil {
			pool.Close()
			return fail(err)
		}
		infra.Registry = reg
	default:
		provider := pfirestore.NewProvider(cfg.Firestore)
		reg, err := firestore.NewRegistry(provider, checks...)
		if err != nil {
			_ = provider.Close(ctx)
			return fail(err)
		}
		res.Firestore = provider
		infra.Registry = reg
	}

	return infra, res, nil
}

// bucketCheck reports storage readiness. A bucket that does not exist yet is healthy
// because the uploader creates it on first use.
func bucketCheck(client *gcs.Client, bucket string) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := client.Bucket(bucket).Attrs(ctx)
		if err == nil || errors.Is(err, gcs.ErrBucketNotExist) {
			return nil
		}
		return err
	}
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"cloud.google.com/go/iam"
	gcs "cloud.google.com/go/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
)

const (
	metricNamespace  = "github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/storage"
	publicReaderRole = iam.RoleName("roles/storage.objectViewer")
)

var (
	errInvalidBucket = errors.New("storage: bucket name is required")
	errInvalidObject = errors.New("storage: object name is required")
)

// Backend performs the raw object store calls used by Uploader.
type Backend interface {
	WriteObject(ctx context.Context, bucket, object, contentType string, data []byte) error
	CreatePublicBucket(ctx context.Context, bucket string) error
}

// GCSBackend implements Backend on Cloud Storage.
type GCSBackend struct {
	client    *gcs.Client
	projectID string
}

// NewGCSBackend wraps a Cloud Storage client. projectID is used when buckets are created.
func NewGCSBackend(client *gcs.Client, projectID string) (*GCSBackend, error) {
	if client == nil {
		return nil, errors.New("storage: client is required")
	}
	return &GCSBackend{client: client, projectID: strings.TrimSpace(projectID)}, nil
}

// WriteObject uploads data as a new object. Existing objects are never overwritten.
func (b *GCSBackend) WriteObject(ctx context.Context, bucket, object, contentType string, data []byte) error {
	w := b.client.Bucket(bucket).Object(object).If(gcs.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// CreatePublicBucket creates the bucket when missing and grants anonymous object reads.
func (b *GCSBackend) CreatePublicBucket(ctx context.Context, bucket string) error {
	if b.projectID == "" {
		return errors.New("storage: project id is required to create buckets")
	}
	handle := b.client.Bucket(bucket)
	err := handle.Create(ctx, b.projectID, &gcs.BucketAttrs{
		UniformBucketLevelAccess: gcs.UniformBucketLevelAccess{Enabled: true},
	})
	var apiErr *googleapi.Error
	if err != nil && !(errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict) {
		return err
	}

	policy, err := handle.IAM().Policy(ctx)
	if err != nil {
		return err
	}
	if policy.HasRole(iam.AllUsers, publicReaderRole) {
		return nil
	}
	policy.Add(iam.AllUsers, publicReaderRole)
	return handle.IAM().SetPolicy(ctx, policy)
}

// Uploader writes public template images, creating the bucket once when the first
// write fails.
type Uploader struct {
	backend       Backend
	publicBaseURL string
	logger        *zap.Logger

	retries        metric.Int64Counter
	retriesEnabled bool
}

// UploaderOption customises Uploader construction.
type UploaderOption func(*uploaderConfig)

type uploaderConfig struct {
	logger *zap.Logger
	meter  metric.Meter
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(logger *zap.Logger) UploaderOption {
	return func(cfg *uploaderConfig) {
		cfg.logger = logger
	}
}

// WithMeter injects a custom OpenTelemetry meter.
func WithMeter(m metric.Meter) UploaderOption {
	return func(cfg *uploaderConfig) {
		cfg.meter = m
	}
}

// NewUploader constructs an Uploader. publicBaseURL prefixes public object URLs.
func NewUploader(backend Backend, publicBaseURL string, opts ...UploaderOption) (*Uploader, error) {
	if backend == nil {
		return nil, errors.New("storage: backend is required")
	}
	base := strings.TrimRight(strings.TrimSpace(publicBaseURL), "/")
	if base == "" {
		return nil, errors.New("storage: public base url is required")
	}

	cfg := uploaderConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	meter := cfg.meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(metricNamespace)
	}
	retries, err := meter.Int64Counter(
		"storage.upload.retries",
		metric.WithDescription("Uploads retried after creating the destination bucket"),
	)
	if err != nil {
		cfg.logger.Warn("storage: unable to register retry metric", zap.Error(err))
	}

	return &Uploader{
		backend:        backend,
		publicBaseURL:  base,
		logger:         cfg.logger,
		retries:        retries,
		retriesEnabled: err == nil,
	}, nil
}

// Upload writes the object and returns its public URL. When the first write fails the
// bucket is created (public read) and the write is retried exactly once; the error of
// the retry is returned unchanged.
func (u *Uploader) Upload(ctx context.Context, bucket, object, contentType string, data []byte) (string, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return "", errInvalidBucket
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return "", errInvalidObject
	}

	err := u.backend.WriteObject(ctx, bucket, object, contentType, data)
	if err == nil {
		return u.PublicURL(bucket, object), nil
	}
	if ctx.Err() != nil {
		return "", err
	}

	u.logger.Warn("storage: upload failed, creating bucket and retrying",
		zap.String("bucket", bucket),
		zap.String("object", object),
		zap.Error(err),
	)
	if createErr := u.backend.CreatePublicBucket(ctx, bucket); createErr != nil {
		u.logger.Warn("storage: bucket creation failed", zap.String("bucket", bucket), zap.Error(createErr))
	}
	if u.retriesEnabled {
		u.retries.Add(ctx, 1, metric.WithAttributes(attribute.String("bucket", bucket)))
	}

	if err := u.backend.WriteObject(ctx, bucket, object, contentType, data); err != nil {
		return "", err
	}
	return u.PublicURL(bucket, object), nil
}

// PublicURL returns the anonymous read URL for an object.
func (u *Uploader) PublicURL(bucket, object string) string {
	return fmt.Sprintf("%s/%s/%s", u.publicBaseURL, url.PathEscape(bucket), url.PathEscape(object))
}

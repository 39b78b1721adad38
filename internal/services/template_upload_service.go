package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/storage"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/repositories"
)

const maxUploadBytes = 8 << 20

var dataURLPattern = regexp.MustCompile(`^data:(.+);base64,(.+)$`)

var (
	// ErrUploadInvalidInput indicates a required upload field was missing.
	ErrUploadInvalidInput = errors.New("upload: missing parameters")
	// ErrUploadInvalidDataURL indicates the payload was not a base64 data URL.
	ErrUploadInvalidDataURL = errors.New("upload: invalid data url")
	// ErrUploadStorageFailed indicates the object store rejected the write after the retry.
	ErrUploadStorageFailed = errors.New("upload: storage failed")
)

// UploadStorageError carries the object store failure behind ErrUploadStorageFailed.
type UploadStorageError struct {
	Err error
}

func (e *UploadStorageError) Error() string {
	return ErrUploadStorageFailed.Error() + ": " + e.Err.Error()
}

func (e *UploadStorageError) Unwrap() error { return e.Err }

func (e *UploadStorageError) Is(target error) bool { return target == ErrUploadStorageFailed }

// ObjectUploader writes a blob and returns its public URL. storage.Uploader implements it
// with the create-bucket-and-retry-once policy.
type ObjectUploader interface {
	Upload(ctx context.Context, bucket, object, contentType string, data []byte) (string, error)
}

// TemplateUploadServiceDeps wires the upload service.
type TemplateUploadServiceDeps struct {
	Templates repositories.TemplateRepository
	Uploader  ObjectUploader
	Bucket    string
	Events    EventPublisher
	Clock     func() time.Time
	Logger    func(ctx context.Context, event string, fields map[string]any)
}

type templateUploadService struct {
	templates repositories.TemplateRepository
	uploader  ObjectUploader
	bucket    string
	events    eventEmitter
	now       func() time.Time
	logger    func(context.Context, string, map[string]any)
}

var _ TemplateUploadService = (*templateUploadService)(nil)

// NewTemplateUploadService constructs the upload service.
func NewTemplateUploadService(deps TemplateUploadServiceDeps) (TemplateUploadService, error) {
	if deps.Templates == nil {
		return nil, errors.New("template upload service: template repository is required")
	}
	if deps.Uploader == nil {
		return nil, errors.New("template upload service: uploader is required")
	}
	bucket := strings.TrimSpace(deps.Bucket)
	if bucket == "" {
		return nil, errors.New("template upload service: bucket is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	now := func() time.Time { return clock().UTC() }
	return &templateUploadService{
		templates: deps.Templates,
		uploader:  deps.Uploader,
		bucket:    bucket,
		events:    newEventEmitter(deps.Events, logger, now),
		now:       now,
		logger:    logger,
	}, nil
}

// UploadTemplateImage decodes the data URL, stores the blob and points the template at
// it. The blob write and the catalog update are separate calls: a failed update leaves
// the uploaded object in place and is only logged.
func (s *templateUploadService) UploadTemplateImage(ctx context.Context, cmd UploadTemplateImageCommand) (UploadTemplateImageResult, error) {
	templateID := strings.TrimSpace(cmd.TemplateID)
	fileName := strings.TrimSpace(cmd.FileName)
	if templateID == "" || fileName == "" || cmd.DataURL == "" {
		return UploadTemplateImageResult{}, ErrUploadInvalidInput
	}

	contentType, data, err := DecodeDataURL(cmd.DataURL)
	if err != nil {
		return UploadTemplateImageResult{}, err
	}

	uploadedAt := s.now()
	object, err := storage.TemplateObjectKey(storage.TemplateObjectParams{
		TemplateID: templateID,
		FileName:   fileName,
		UploadedAt: uploadedAt,
	})
	if err != nil {
		return UploadTemplateImageResult{}, fmt.Errorf("%w: %v", ErrUploadInvalidInput, err)
	}

	url, err := s.uploader.Upload(ctx, s.bucket, object, contentType, data)
	if err != nil {
		s.logger(ctx, "templates.upload.failed", map[string]any{
			"templateId": templateID,
			"object":     object,
			"error":      err.Error(),
		})
		return UploadTemplateImageResult{}, &UploadStorageError{Err: err}
	}

	if err := s.templates.UpdateImageURL(ctx, templateID, url); err != nil {
		s.logger(ctx, "templates.image_url.update.failed", map[string]any{
			"templateId": templateID,
			"url":        url,
			"error":      err.Error(),
		})
	}

	s.logger(ctx, "templates.upload.completed", map[string]any{
		"templateId":  templateID,
		"object":      object,
		"contentType": contentType,
		"bytes":       len(data),
	})
	s.events.emit(ctx, EventTemplateImageUploaded, templateID, map[string]any{
		"url":         url,
		"object":      object,
		"contentType": contentType,
	})
	return UploadTemplateImageResult{URL: url, Object: object, UploadedAt: uploadedAt}, nil
}

// DecodeDataURL splits a `data:<mime>;base64,<payload>` string and decodes the payload.
func DecodeDataURL(dataURL string) (string, []byte, error) {
	match := dataURLPattern.FindStringSubmatch(dataURL)
	if match == nil {
		return "", nil, ErrUploadInvalidDataURL
	}
	contentType, payload := match[1], match[2]
	if base64.StdEncoding.DecodedLen(len(payload)) > maxUploadBytes {
		return "", nil, fmt.Errorf("%w: payload exceeds %d bytes", ErrUploadInvalidDataURL, maxUploadBytes)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrUploadInvalidDataURL, err)
	}
	return contentType, data, nil
}

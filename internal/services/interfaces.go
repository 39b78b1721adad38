package services

import (
	"context"
	"time"

	domain "github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Template           = domain.Template
	TemplateSeed       = domain.TemplateSeed
	ForumMessage       = domain.ForumMessage
	LikeAction         = domain.LikeAction
	CheckoutLineItem   = domain.CheckoutLineItem
	CheckoutSession    = domain.CheckoutSession
	SystemHealthReport = domain.SystemHealthReport
)

// TemplateSummary is a catalog template prepared for presentation.
type TemplateSummary struct {
	Template
	// DescriptionHTML is the Markdown description rendered and sanitised.
	DescriptionHTML string
	PriceCents      int64
}

// CatalogService exposes the template catalog.
type CatalogService interface {
	ListTemplates(ctx context.Context, limit int) ([]TemplateSummary, error)
	GetTemplate(ctx context.Context, templateID string) (TemplateSummary, error)
	SeedTemplates(ctx context.Context, seeds []TemplateSeed) ([]TemplateSummary, error)
}

// CreateCheckoutSessionCommand carries the line items posted by the storefront. An empty
// list falls back to a single default card.
type CreateCheckoutSessionCommand struct {
	Items          []CheckoutLineItem
	IdempotencyKey string
}

// CheckoutService forwards orders to the hosted payment page.
type CheckoutService interface {
	CreateCheckoutSession(ctx context.Context, cmd CreateCheckoutSessionCommand) (CheckoutSession, error)
}

// UploadTemplateImageCommand carries an admin image upload encoded as a data URL.
type UploadTemplateImageCommand struct {
	TemplateID string
	FileName   string
	DataURL    string
}

// UploadTemplateImageResult names the public URL of the stored image.
type UploadTemplateImageResult struct {
	URL        string
	Object     string
	UploadedAt time.Time
}

// TemplateUploadService stores template images and links them to the catalog.
type TemplateUploadService interface {
	UploadTemplateImage(ctx context.Context, cmd UploadTemplateImageCommand) (UploadTemplateImageResult, error)
}

// PostMessageCommand creates a forum post. User falls back to the default forum user.
type PostMessageCommand struct {
	User string
	Text string
}

// SetLikeCommand likes or unlikes a message on behalf of UserName.
type SetLikeCommand struct {
	MessageID string
	Action    LikeAction
	UserName  string
}

// LikeResult reports the like count after the change.
type LikeResult struct {
	MessageID string
	Count     int64
}

// ForumService backs the community forum.
type ForumService interface {
	ListMessages(ctx context.Context, limit int) ([]ForumMessage, error)
	PostMessage(ctx context.Context, cmd PostMessageCommand) (ForumMessage, error)
	SetLike(ctx context.Context, cmd SetLikeCommand) (LikeResult, error)
}

// SystemService aggregates utility endpoints.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}

// SessionService ends authenticated admin sessions.
type SessionService interface {
	ClearSession(ctx context.Context, uid string) error
}

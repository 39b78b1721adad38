package handlers

import (
	"context"
	"encoding/json"
	"testing"

	firebaseauth "firebase.google.com/go/v4/auth"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/services"
)

type stubCatalogService struct {
	listFn func(ctx context.Context, limit int) ([]services.TemplateSummary, error)
	getFn  func(ctx context.Context, id string) (services.TemplateSummary, error)
	seedFn func(ctx context.Context, seeds []services.TemplateSeed) ([]services.TemplateSummary, error)
}

func (s *stubCatalogService) ListTemplates(ctx context.Context, limit int) ([]services.TemplateSummary, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, limit)
}

func (s *stubCatalogService) GetTemplate(ctx context.Context, id string) (services.TemplateSummary, error) {
	if s.getFn == nil {
		return services.TemplateSummary{}, services.ErrTemplateNotFound
	}
	return s.getFn(ctx, id)
}

func (s *stubCatalogService) SeedTemplates(ctx context.Context, seeds []services.TemplateSeed) ([]services.TemplateSummary, error) {
	if s.seedFn == nil {
		return nil, nil
	}
	return s.seedFn(ctx, seeds)
}

type stubCheckoutService struct {
	createFn func(ctx context.Context, cmd services.CreateCheckoutSessionCommand) (services.CheckoutSession, error)
}

func (s *stubCheckoutService) CreateCheckoutSession(ctx context.Context, cmd services.CreateCheckoutSessionCommand) (services.CheckoutSession, error) {
	return s.createFn(ctx, cmd)
}

type stubUploadService struct {
	uploadFn func(ctx context.Context, cmd services.UploadTemplateImageCommand) (services.UploadTemplateImageResult, error)
}

func (s *stubUploadService) UploadTemplateImage(ctx context.Context, cmd services.UploadTemplateImageCommand) (services.UploadTemplateImageResult, error) {
	return s.uploadFn(ctx, cmd)
}

type stubForumService struct {
	listFn func(ctx context.Context, limit int) ([]services.ForumMessage, error)
	postFn func(ctx context.Context, cmd services.PostMessageCommand) (services.ForumMessage, error)
	likeFn func(ctx context.Context, cmd services.SetLikeCommand) (services.LikeResult, error)
}

func (s *stubForumService) ListMessages(ctx context.Context, limit int) ([]services.ForumMessage, error) {
	return s.listFn(ctx, limit)
}

func (s *stubForumService) PostMessage(ctx context.Context, cmd services.PostMessageCommand) (services.ForumMessage, error) {
	return s.postFn(ctx, cmd)
}

func (s *stubForumService) SetLike(ctx context.Context, cmd services.SetLikeCommand) (services.LikeResult, error) {
	return s.likeFn(ctx, cmd)
}

type stubSystemService struct {
	report services.SystemHealthReport
	err    error
}

func (s *stubSystemService) HealthReport(context.Context) (services.SystemHealthReport, error) {
	return s.report, s.err
}

type stubSessionService struct {
	uid string
	err error
}

func (s *stubSessionService) ClearSession(_ context.Context, uid string) error {
	s.uid = uid
	return s.err
}

type stubTokenVerifier struct {
	token *firebaseauth.Token
	err   error
}

func (s *stubTokenVerifier) VerifyIDToken(context.Context, string) (*firebaseauth.Token, error) {
	return s.token, s.err
}

var (
	_ services.CatalogService        = (*stubCatalogService)(nil)
	_ services.CheckoutService       = (*stubCheckoutService)(nil)
	_ services.TemplateUploadService = (*stubUploadService)(nil)
	_ services.ForumService          = (*stubForumService)(nil)
	_ services.SystemService         = (*stubSystemService)(nil)
	_ services.SessionService        = (*stubSessionService)(nil)
)

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Status  int    `json:"status"`
	} `json:"error"`
}

func decodeError(t *testing.T, body []byte) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("failed to decode error body %q: %v", body, err)
	}
	return env
}

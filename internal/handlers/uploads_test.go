package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	firebaseauth "firebase.google.com/go/v4/auth"

	domain "github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/domain"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/auth"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/services"
)

type countingUploader struct {
	calls int
	err   error
}

func (u *countingUploader) Upload(_ context.Context, bucket, object, _ string, _ []byte) (string, error) {
	u.calls++
	if u.err != nil {
		return "", u.err
	}
	return "https://storage.googleapis.com/" + bucket + "/" + object, nil
}

type noopTemplateRepository struct {
	updated map[string]string
}

func (r *noopTemplateRepository) List(context.Context, int) ([]domain.Template, error) {
	return nil, nil
}

func (r *noopTemplateRepository) FindByID(context.Context, string) (domain.Template, error) {
	return domain.Template{}, errors.New("not implemented")
}

func (r *noopTemplateRepository) Upsert(_ context.Context, t domain.Template) (domain.Template, error) {
	return t, nil
}

func (r *noopTemplateRepository) UpdateImageURL(_ context.Context, id, url string) error {
	if r.updated == nil {
		r.updated = map[string]string{}
	}
	r.updated[id] = url
	return nil
}

func newUploadRouter(t *testing.T, uploader *countingUploader, repo *noopTemplateRepository) http.Handler {
	t.Helper()
	svc, err := services.NewTemplateUploadService(services.TemplateUploadServiceDeps{
		Templates: repo,
		Uploader:  uploader,
		Bucket:    "templates",
		Clock:     func() time.Time { return time.UnixMilli(1700000000000) },
	})
	if err != nil {
		t.Fatalf("NewTemplateUploadService: %v", err)
	}
	return NewRouter(WithUploadRoutes(NewUploadHandlers(nil, svc).Routes))
}

func postUpload(router http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/upload-template", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestUploadHandlersStoresTemplateImage(t *testing.T) {
	uploader := &countingUploader{}
	repo := &noopTemplateRepository{}
	router := newUploadRouter(t, uploader, repo)

	rr := postUpload(router, `{"templateId":"snowy-pine","filename":"front side.png","data":"data:image/png;base64,aGVsbG8="}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := "https://storage.googleapis.com/templates/snowy-pine-1700000000000-front_side.png"
	if resp.URL != want {
		t.Fatalf("expected %s, got %s", want, resp.URL)
	}
	if repo.updated["snowy-pine"] != want {
		t.Fatalf("expected template image url updated, got %v", repo.updated)
	}
}

func TestUploadHandlersRejectsInvalidDataURLWithoutStorageCall(t *testing.T) {
	uploader := &countingUploader{}
	router := newUploadRouter(t, uploader, &noopTemplateRepository{})

	rr := postUpload(router, `{"templateId":"snowy-pine","filename":"a.png","data":"hello"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if env := decodeError(t, rr.Body.Bytes()); env.Error.Message != "Invalid data URL" {
		t.Fatalf("unexpected message %q", env.Error.Message)
	}
	if uploader.calls != 0 {
		t.Fatalf("expected no storage call, got %d", uploader.calls)
	}
}

func TestUploadHandlersMissingParameters(t *testing.T) {
	router := newUploadRouter(t, &countingUploader{}, &noopTemplateRepository{})

	for _, body := range []string{`{}`, `{"templateId":"a","filename":"b.png"}`, `{"filename":"b.png","data":"data:a;base64,aA=="}`} {
		rr := postUpload(router, body)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, rr.Code)
		}
		if env := decodeError(t, rr.Body.Bytes()); env.Error.Message != "Missing parameters" {
			t.Fatalf("%s: unexpected message %q", body, env.Error.Message)
		}
	}
}

func TestUploadHandlersStorageFailure(t *testing.T) {
	uploader := &countingUploader{err: errors.New("bucket missing after retry")}
	router := newUploadRouter(t, uploader, &noopTemplateRepository{})

	rr := postUpload(router, `{"templateId":"snowy-pine","filename":"a.png","data":"data:image/png;base64,aGVsbG8="}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if env := decodeError(t, rr.Body.Bytes()); env.Error.Message != "Storage upload failed: bucket missing after retry" {
		t.Fatalf("unexpected message %q", env.Error.Message)
	}
}

func TestUploadHandlersRequireAdminWhenAuthConfigured(t *testing.T) {
	called := false
	svc := &stubUploadService{uploadFn: func(context.Context, services.UploadTemplateImageCommand) (services.UploadTemplateImageResult, error) {
		called = true
		return services.UploadTemplateImageResult{URL: "https://x"}, nil
	}}
	verifier := &stubTokenVerifier{token: &firebaseauth.Token{UID: "shopper", Claims: map[string]any{}}}
	router := NewRouter(WithUploadRoutes(NewUploadHandlers(auth.NewAuthenticator(verifier), svc).Routes))

	body := `{"templateId":"a","filename":"b.png","data":"data:image/png;base64,aGVsbG8="}`

	rr := postUpload(router, body)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/upload-template", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer customer-token")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer, got %d", rr.Code)
	}

	verifier.token = &firebaseauth.Token{UID: "ops", Claims: map[string]any{"role": "admin"}}
	req = httptest.NewRequest(http.MethodPost, "/api/upload-template", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer admin-token")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || !called {
		t.Fatalf("expected admin upload to succeed, got %d", rr.Code)
	}
}

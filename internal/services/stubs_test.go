package services

import (
	"context"
	"sort"
	"sync"

	domain "github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/domain"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/payments"
)

type repoNotFoundError struct{}

func (repoNotFoundError) Error() string       { return "not found" }
func (repoNotFoundError) IsNotFound() bool    { return true }
func (repoNotFoundError) IsConflict() bool    { return false }
func (repoNotFoundError) IsUnavailable() bool { return false }

type memoryTemplateRepository struct {
	mu          sync.Mutex
	items       map[string]domain.Template
	listErr     error
	upsertErr   error
	updateErr   error
	imageURLSet map[string]string
}

func newMemoryTemplateRepository() *memoryTemplateRepository {
	return &memoryTemplateRepository{items: map[string]domain.Template{}, imageURLSet: map[string]string{}}
}

func (r *memoryTemplateRepository) List(_ context.Context, limit int) ([]domain.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]domain.Template, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryTemplateRepository) FindByID(_ context.Context, id string) (domain.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return domain.Template{}, repoNotFoundError{}
	}
	return item, nil
}

func (r *memoryTemplateRepository) Upsert(_ context.Context, template domain.Template) (domain.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return domain.Template{}, r.upsertErr
	}
	if existing, ok := r.items[template.ID]; ok {
		template.CreatedAt = existing.CreatedAt
		if template.ImageURL == "" {
			template.ImageURL = existing.ImageURL
		}
	}
	r.items[template.ID] = template
	return template, nil
}

func (r *memoryTemplateRepository) UpdateImageURL(_ context.Context, id, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	r.imageURLSet[id] = url
	if item, ok := r.items[id]; ok {
		item.ImageURL = url
		r.items[id] = item
	}
	return nil
}

type memoryForumStore struct {
	mu       sync.Mutex
	messages []domain.ForumMessage
	likes    map[[2]string]struct{}
	countErr error
}

func newMemoryForumStore() *memoryForumStore {
	return &memoryForumStore{likes: map[[2]string]struct{}{}}
}

func (s *memoryForumStore) Insert(_ context.Context, message domain.ForumMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, message)
	return nil
}

func (s *memoryForumStore) ListRecent(_ context.Context, limit int) ([]domain.ForumMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]domain.ForumMessage(nil), s.messages...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memoryLikeStore struct{ *memoryForumStore }

func (s memoryLikeStore) Insert(_ context.Context, like domain.ForumLike) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.likes[[2]string{like.MessageID, like.UserName}] = struct{}{}
	return nil
}

func (s memoryLikeStore) Delete(_ context.Context, messageID, userName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.likes, [2]string{messageID, userName})
	return nil
}

func (s memoryLikeStore) CountByMessage(_ context.Context, messageID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countErr != nil {
		return 0, s.countErr
	}
	var n int64
	for key := range s.likes {
		if key[0] == messageID {
			n++
		}
	}
	return n, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, event := range p.events {
		out = append(out, event.Type)
	}
	return out
}

type stubPaymentProvider struct {
	req     payments.CheckoutSessionRequest
	calls   int
	session payments.CheckoutSession
	err     error
}

func (p *stubPaymentProvider) CreateCheckoutSession(_ context.Context, req payments.CheckoutSessionRequest) (payments.CheckoutSession, error) {
	p.calls++
	p.req = req
	return p.session, p.err
}

type recordingLogger struct {
	mu     sync.Mutex
	events []string
}

func (l *recordingLogger) log(_ context.Context, event string, _ map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *recordingLogger) has(event string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e == event {
			return true
		}
	}
	return false
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrSessionInvalidInput indicates the caller identity was missing.
var ErrSessionInvalidInput = errors.New("session: invalid input")

// SessionRevoker invalidates refresh tokens. auth.FirebaseClient implements it.
type SessionRevoker interface {
	RevokeSession(ctx context.Context, uid string) error
}

// SessionServiceDeps wires the session service.
type SessionServiceDeps struct {
	Revoker SessionRevoker
	Logger  func(ctx context.Context, event string, fields map[string]any)
}

type sessionService struct {
	revoker SessionRevoker
	logger  func(context.Context, string, map[string]any)
}

var _ SessionService = (*sessionService)(nil)

// NewSessionService constructs the admin session service.
func NewSessionService(deps SessionServiceDeps) (SessionService, error) {
	if deps.Revoker == nil {
		return nil, errors.New("session service: revoker is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &sessionService{revoker: deps.Revoker, logger: logger}, nil
}

// ClearSession signs uid out everywhere once their current ID token expires.
func (s *sessionService) ClearSession(ctx context.Context, uid string) error {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return fmt.Errorf("%w: uid is required", ErrSessionInvalidInput)
	}
	if err := s.revoker.RevokeSession(ctx, uid); err != nil {
		return fmt.Errorf("session: revoke: %w", err)
	}
	s.logger(ctx, "auth.session.cleared", map[string]any{"uid": uid})
	return nil
}

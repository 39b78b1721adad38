// Package requestctx carries per-request state for the storefront API: the scoped
// logger, trace metadata and the resolved client address.
package requestctx

import (
	"context"

	"go.uber.org/zap"
)

type scopeKey struct{}

// scope is copied on every With* call so parent contexts never observe child updates.
type scope struct {
	logger   *zap.Logger
	trace    TraceInfo
	hasTrace bool
	clientIP string
}

var nop = zap.NewNop()

// TraceInfo is the Cloud Trace context parsed from the incoming request.
type TraceInfo struct {
	TraceID   string
	SpanID    string
	Sampled   bool
	ProjectID string
}

func current(ctx context.Context) scope {
	if ctx == nil {
		return scope{}
	}
	s, _ := ctx.Value(scopeKey{}).(scope)
	return s
}

func with(ctx context.Context, update func(*scope)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	s := current(ctx)
	update(&s)
	return context.WithValue(ctx, scopeKey{}, s)
}

// WithLogger stores the request logger. A nil logger stores the no-op logger.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if logger == nil {
		logger = nop
	}
	return with(ctx, func(s *scope) { s.logger = logger })
}

// Logger returns the request logger, or the no-op logger outside a request.
func Logger(ctx context.Context) *zap.Logger {
	if l := current(ctx).logger; l != nil {
		return l
	}
	return nop
}

// NoopLogger is the logger Logger falls back to; callers compare against it to
// substitute their own fallback.
func NoopLogger() *zap.Logger { return nop }

// WithTrace stores the trace metadata.
func WithTrace(ctx context.Context, info TraceInfo) context.Context {
	return with(ctx, func(s *scope) {
		s.trace = info
		s.hasTrace = true
	})
}

// Trace reports the stored trace metadata.
func Trace(ctx context.Context) (TraceInfo, bool) {
	s := current(ctx)
	return s.trace, s.hasTrace
}

// TraceID is shorthand for the stored trace id, empty when absent.
func TraceID(ctx context.Context) string {
	return current(ctx).trace.TraceID
}

// WithClientIP records the caller address used for rate limiting and logs.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return with(ctx, func(s *scope) { s.clientIP = ip })
}

// ClientIP returns the recorded caller address, empty when none was recorded.
func ClientIP(ctx context.Context) string {
	return current(ctx).clientIP
}

package config

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

const (
	defaultEnvFile           = ".env"
	defaultPort              = "8080"
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultBaseURL           = "http://localhost:3000"
	defaultStoreDriver       = StoreDriverFirestore
	defaultPostgresMaxConns  = 4
	defaultTemplatesBucket   = "templates"
	defaultPublicBaseURL     = "https://storage.googleapis.com"
	defaultStripeCurrency    = "usd"
	defaultForumUser         = "Visitor"
	defaultForumRateLimit    = 60
	defaultCheckoutRateLimit = 30
	defaultCORSOrigin        = "http://localhost:3000"
	defaultOIDCJWKSURL       = "https://www.googleapis.com/oauth2/v3/certs"
	defaultSecurityIssuer    = "https://accounts.google.com"
	defaultIdempotencyHeader = "Idempotency-Key"
	defaultIdempotencyTTL    = 24 * time.Hour
	defaultEnvironment       = "local"
)

// Store drivers supported by the repository registry.
const (
	StoreDriverFirestore = "firestore"
	StoreDriverPostgres  = "postgres"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	Site        SiteConfig
	Store       StoreConfig
	Firebase    FirebaseConfig
	Firestore   FirestoreConfig
	Postgres    PostgresConfig
	Storage     StorageConfig
	Stripe      StripeConfig
	Forum       ForumConfig
	RateLimits  RateLimitConfig
	CORS        CORSConfig
	Auth        AuthConfig
	Security    SecurityConfig
	Idempotency IdempotencyConfig
	PubSub      PubSubConfig
	Secrets     SecretsConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// SiteConfig holds the public storefront origin used to build checkout return URLs.
type SiteConfig struct {
	BaseURL string
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string
}

// FirebaseConfig stores Firebase project settings.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// PostgresConfig configures the relational store used when Store.Driver is postgres.
type PostgresConfig struct {
	URL      string
	MaxConns int
}

// StorageConfig describes where template images are written.
type StorageConfig struct {
	TemplatesBucket string
	PublicBaseURL   string
}

// StripeConfig collects payment gateway settings.
type StripeConfig struct {
	SecretKey string
	Currency  string
}

// ForumConfig controls forum defaults.
type ForumConfig struct {
	DefaultUser string
}

// RateLimitConfig controls request throttling on anonymous write endpoints.
type RateLimitConfig struct {
	ForumPerMinute    int
	CheckoutPerMinute int
}

// CORSConfig lists browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string
}

// AuthConfig toggles Firebase protection of admin routes.
type AuthConfig struct {
	AdminRequired bool
}

// SecurityConfig groups server-to-server authentication settings.
type SecurityConfig struct {
	Environment string
	OIDC        OIDCConfig
}

// IsLocalEnvironment reports whether env names a developer or test deployment, where
// Stripe and the upload bucket may be left unconfigured.
func IsLocalEnvironment(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "", "local", "dev", "test":
		return true
	}
	return false
}

// OIDCConfig controls Google-signed token verification for internal routes.
type OIDCConfig struct {
	JWKSURL  string
	Audience string
	Issuers  []string
}

// IdempotencyConfig controls idempotency middleware behaviour.
type IdempotencyConfig struct {
	Header string
	TTL    time.Duration
}

// PubSubConfig names the topic domain events are published to.
type PubSubConfig struct {
	EventsTopic string
}

// SecretsConfig configures the Secret Manager fetcher.
type SecretsConfig struct {
	ProjectID    string
	FallbackFile string
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

func (e *SecretError) Unwrap() error { return e.Err }

// MissingSecretsError indicates that one or more required secrets resolved to empty values.
type MissingSecretsError struct {
	names []string
}

func (e *MissingSecretsError) Error() string {
	if e == nil || len(e.names) == 0 {
		return "missing required secrets"
	}
	redacted := make([]string, 0, len(e.names))
	for _, name := range e.names {
		redacted = append(redacted, redactSecretName(name))
	}
	sort.Strings(redacted)
	return fmt.Sprintf("missing required secrets [%s]", strings.Join(redacted, ", "))
}

// Names returns the field names of the missing secrets.
func (e *MissingSecretsError) Names() []string {
	if e == nil {
		return nil
	}
	out := append([]string(nil), e.names...)
	sort.Strings(out)
	return out
}

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile         string
	envMap          map[string]string
	useSystemEnv    bool
	secret          SecretResolver
	requiredSecrets []string
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map. Values in the map take precedence over
// system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets the resolver used for secret:// and sm:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// WithRequiredSecrets marks secret fields (e.g. "Stripe.SecretKey") as mandatory.
func WithRequiredSecrets(names ...string) Option {
	return func(o *loaderOptions) {
		o.requiredSecrets = append(o.requiredSecrets, names...)
	}
}

// Load assembles the configuration from defaults, .env overrides, environment variables
// and optional Secret Manager lookups.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
		secret: SecretResolverFunc(func(ctx context.Context, ref string) (string, error) {
			return "", errSecretResolverNotConfigured
		}),
	}
	for _, opt := range opts {
		opt(&options)
	}

	env, err := newSource(options)
	if err != nil {
		return Config{}, err
	}

	firebaseProject := env.str("FIREBASE_PROJECT_ID", "")

	cfg := Config{
		Server: ServerConfig{
			Port:         env.str("SERVER_PORT", defaultPort),
			ReadTimeout:  env.duration("SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: env.duration("SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  env.duration("SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Site: SiteConfig{
			BaseURL: env.url("BASE_URL", defaultBaseURL),
		},
		Store: StoreConfig{
			Driver: env.lower("STORE_DRIVER", defaultStoreDriver),
		},
		Firebase: FirebaseConfig{
			ProjectID:       firebaseProject,
			CredentialsFile: env.str("FIREBASE_CREDENTIALS_FILE", ""),
		},
		Firestore: FirestoreConfig{
			ProjectID:    env.str("FIRESTORE_PROJECT_ID", firebaseProject),
			EmulatorHost: env.str("FIRESTORE_EMULATOR_HOST", ""),
		},
		Postgres: PostgresConfig{
			URL:      env.str("POSTGRES_URL", ""),
			MaxConns: env.int("POSTGRES_MAX_CONNS", defaultPostgresMaxConns),
		},
		Storage: StorageConfig{
			TemplatesBucket: env.str("STORAGE_TEMPLATES_BUCKET", defaultTemplatesBucket),
			PublicBaseURL:   env.url("STORAGE_PUBLIC_BASE_URL", defaultPublicBaseURL),
		},
		Stripe: StripeConfig{
			SecretKey: env.str("STRIPE_SECRET_KEY", ""),
			Currency:  env.lower("STRIPE_CURRENCY", defaultStripeCurrency),
		},
		Forum: ForumConfig{
			DefaultUser: env.str("FORUM_DEFAULT_USER", defaultForumUser),
		},
		RateLimits: RateLimitConfig{
			ForumPerMinute:    env.int("RATELIMIT_FORUM_PER_MIN", defaultForumRateLimit),
			CheckoutPerMinute: env.int("RATELIMIT_CHECKOUT_PER_MIN", defaultCheckoutRateLimit),
		},
		CORS: CORSConfig{
			AllowedOrigins: env.list("CORS_ALLOWED_ORIGINS", defaultCORSOrigin),
		},
		Auth: AuthConfig{
			AdminRequired: env.bool("AUTH_ADMIN_REQUIRED", firebaseProject != ""),
		},
		Security: SecurityConfig{
			Environment: env.lower("SECURITY_ENVIRONMENT", defaultEnvironment),
			OIDC: OIDCConfig{
				JWKSURL:  env.str("SECURITY_OIDC_JWKS_URL", defaultOIDCJWKSURL),
				Audience: env.str("SECURITY_OIDC_AUDIENCE", ""),
				Issuers:  env.list("SECURITY_OIDC_ISSUERS", defaultSecurityIssuer),
			},
		},
		Idempotency: IdempotencyConfig{
			Header: env.str("IDEMPOTENCY_HEADER", defaultIdempotencyHeader),
			TTL:    env.duration("IDEMPOTENCY_TTL", defaultIdempotencyTTL),
		},
		PubSub: PubSubConfig{
			EventsTopic: env.str("PUBSUB_EVENTS_TOPIC", ""),
		},
		Secrets: SecretsConfig{
			ProjectID:    env.str("SECRETS_PROJECT_ID", firebaseProject),
			FallbackFile: env.str("SECRETS_FALLBACK_FILE", ""),
		},
	}

	resolved := make(map[string]string)
	secretFields := []struct {
		name  string
		field *string
	}{
		{"Stripe.SecretKey", &cfg.Stripe.SecretKey},
		{"Postgres.URL", &cfg.Postgres.URL},
	}
	for _, target := range secretFields {
		value, err := resolveSecret(ctx, *target.field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*target.field = value
		resolved[target.name] = strings.TrimSpace(value)
	}

	if err := validateConfig(cfg, env.invalid); err != nil {
		return Config{}, err
	}

	var missing []string
	for _, name := range options.requiredSecrets {
		name = strings.TrimSpace(name)
		if name != "" && resolved[name] == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return Config{}, &MissingSecretsError{names: missing}
	}

	return cfg, nil
}

// EnvironmentValues returns the effective environment after applying Load's precedence
// (dotenv < OS env < explicit map), so callers can bootstrap the secret fetcher first.
func EnvironmentValues(opts ...Option) (map[string]string, error) {
	options := loaderOptions{envFile: defaultEnvFile, useSystemEnv: true}
	for _, opt := range opts {
		opt(&options)
	}

	values, err := loadDotEnv(options.envFile)
	if err != nil {
		return nil, err
	}
	if values == nil {
		values = make(map[string]string)
	}
	if options.useSystemEnv {
		for _, entry := range os.Environ() {
			key, value, ok := strings.Cut(entry, "=")
			if !ok || strings.TrimSpace(key) == "" {
				continue
			}
			values[strings.TrimSpace(key)] = value
		}
	}
	for key, value := range options.envMap {
		values[key] = value
	}
	return values, nil
}

func validateConfig(cfg Config, malformed []string) error {
	missing := append([]string(nil), malformed...)

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Site.BaseURL == "" {
		missing = append(missing, "Site.BaseURL")
	}
	switch cfg.Store.Driver {
	case StoreDriverFirestore:
		if cfg.Firestore.ProjectID == "" {
			missing = append(missing, "Firestore.ProjectID")
		}
	case StoreDriverPostgres:
		if cfg.Postgres.URL == "" {
			missing = append(missing, "Postgres.URL")
		}
		if cfg.Postgres.MaxConns <= 0 {
			missing = append(missing, "Postgres.MaxConns")
		}
	default:
		missing = append(missing, "Store.Driver")
	}
	if cfg.Storage.TemplatesBucket == "" {
		missing = append(missing, "Storage.TemplatesBucket")
	}
	if cfg.Auth.AdminRequired && cfg.Firebase.ProjectID == "" {
		missing = append(missing, "Firebase.ProjectID")
	}
	if strings.TrimSpace(cfg.Idempotency.Header) == "" {
		missing = append(missing, "Idempotency.Header")
	}
	if cfg.Idempotency.TTL <= 0 {
		missing = append(missing, "Idempotency.TTL")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if value == "" || !isSecretReference(value) {
		return value, nil
	}
	normalized := normalizeSecretReference(value)
	if resolver == nil {
		return "", &SecretError{Ref: normalized, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, normalized)
	if err != nil {
		return "", &SecretError{Ref: normalized, Err: err}
	}
	return secret, nil
}

func isSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if rest, ok := strings.CutPrefix(trimmed, "sm://"); ok {
		return "secret://" + rest
	}
	return trimmed
}

func redactSecretName(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:8])
}

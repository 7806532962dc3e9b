package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile          = ".env"
	defaultPort             = "8080"
	defaultReadTimeout      = 15 * time.Second
	defaultWriteTimeout     = 30 * time.Second
	defaultIdleTimeout      = 120 * time.Second
	defaultRequestTimeout   = 30 * time.Second
	defaultSessionTTL       = 5 * 24 * time.Hour
	defaultPublicBaseURL    = "https://storage.googleapis.com"
	defaultObjectPrefix     = "products"
	defaultMaxUploadBytes   = 5 * 1024 * 1024
	defaultCacheTTL         = 5 * time.Minute
	defaultEventsTopic      = "catalog-events"
	defaultMailFromName     = "Santis"
	defaultPlaceholderImage = "/placeholder.svg"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server     ServerConfig
	Firebase   FirebaseConfig
	Firestore  FirestoreConfig
	Storage    StorageConfig
	Cache      CacheConfig
	Events     EventsConfig
	Mail       MailConfig
	Storefront StorefrontConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
}

// FirebaseConfig stores Firebase project settings. WebAPIKey authorises password sign-in.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
	WebAPIKey       string
	SessionTTL      time.Duration
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// StorageConfig describes where product images live.
type StorageConfig struct {
	ImagesBucket   string
	PublicBaseURL  string
	ObjectPrefix   string
	MaxUploadBytes int64
}

// CacheConfig configures the optional redis read-through cache. An empty address disables it.
type CacheConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

// Enabled reports whether a redis address was configured.
func (c CacheConfig) Enabled() bool {
	return strings.TrimSpace(c.RedisAddr) != ""
}

// EventsConfig configures catalog and contact event publishing.
type EventsConfig struct {
	Enabled bool
	TopicID string
}

// MailConfig configures contact notifications. An empty API key disables email.
type MailConfig struct {
	SendGridAPIKey string
	FromAddress    string
	FromName       string
	NotifyAddress  string
}

// StorefrontConfig carries presentation settings for the public pages.
type StorefrontConfig struct {
	WhatsAppNumber   string
	PublicBaseURL    string
	PlaceholderImage string
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

// Error implements the error interface.
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

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
	secret       SecretResolver
}

// EnvironmentValues returns the effective key/value map after applying the precedence used by
// Load (dotenv < OS env < explicit map). main uses it to build the secret fetcher before Load.
func EnvironmentValues(opts ...Option) (map[string]string, error) {
	options := newLoaderOptions(opts)

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

// WithSecretResolver sets the resolver used for sm:// and secret:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

func newLoaderOptions(opts []Option) loaderOptions {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return options
}

// Load assembles the application configuration by combining defaults, .env overrides,
// environment variables, and Secret Manager lookups.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := newLoaderOptions(opts)

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if value, ok := options.envMap[key]; ok {
			return value, true
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		value, ok := dotEnvValues[key]
		return value, ok
	}

	cfg := Config{
		Server: ServerConfig{
			Port:           stringWithDefault(lookup, "STORE_SERVER_PORT", defaultPort),
			ReadTimeout:    durationWithDefault(lookup, "STORE_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:   durationWithDefault(lookup, "STORE_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:    durationWithDefault(lookup, "STORE_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			RequestTimeout: durationWithDefault(lookup, "STORE_SERVER_REQUEST_TIMEOUT", defaultRequestTimeout),
		},
		Firebase: FirebaseConfig{
			ProjectID:       stringWithDefault(lookup, "STORE_FIREBASE_PROJECT_ID", ""),
			CredentialsFile: stringWithDefault(lookup, "STORE_FIREBASE_CREDENTIALS_FILE", ""),
			WebAPIKey:       stringWithDefault(lookup, "STORE_FIREBASE_WEB_API_KEY", ""),
			SessionTTL:      durationWithDefault(lookup, "STORE_FIREBASE_SESSION_TTL", defaultSessionTTL),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "STORE_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "STORE_FIRESTORE_EMULATOR_HOST", ""),
		},
		Storage: StorageConfig{
			ImagesBucket:   stringWithDefault(lookup, "STORE_STORAGE_IMAGES_BUCKET", ""),
			PublicBaseURL:  strings.TrimRight(stringWithDefault(lookup, "STORE_STORAGE_PUBLIC_BASE_URL", defaultPublicBaseURL), "/"),
			ObjectPrefix:   strings.Trim(stringWithDefault(lookup, "STORE_STORAGE_OBJECT_PREFIX", defaultObjectPrefix), "/"),
			MaxUploadBytes: int64(intWithDefault(lookup, "STORE_STORAGE_MAX_UPLOAD_BYTES", defaultMaxUploadBytes)),
		},
		Cache: CacheConfig{
			RedisAddr:     stringWithDefault(lookup, "STORE_CACHE_REDIS_ADDR", ""),
			RedisPassword: stringWithDefault(lookup, "STORE_CACHE_REDIS_PASSWORD", ""),
			RedisDB:       intWithDefault(lookup, "STORE_CACHE_REDIS_DB", 0),
			TTL:           durationWithDefault(lookup, "STORE_CACHE_TTL", defaultCacheTTL),
		},
		Events: EventsConfig{
			Enabled: boolWithDefault(lookup, "STORE_EVENTS_ENABLED", false),
			TopicID: stringWithDefault(lookup, "STORE_EVENTS_TOPIC", defaultEventsTopic),
		},
		Mail: MailConfig{
			SendGridAPIKey: stringWithDefault(lookup, "STORE_MAIL_SENDGRID_API_KEY", ""),
			FromAddress:    stringWithDefault(lookup, "STORE_MAIL_FROM_ADDRESS", ""),
			FromName:       stringWithDefault(lookup, "STORE_MAIL_FROM_NAME", defaultMailFromName),
			NotifyAddress:  stringWithDefault(lookup, "STORE_MAIL_NOTIFY_ADDRESS", ""),
		},
		Storefront: StorefrontConfig{
			WhatsAppNumber:   stringWithDefault(lookup, "STORE_STOREFRONT_WHATSAPP_NUMBER", ""),
			PublicBaseURL:    strings.TrimRight(stringWithDefault(lookup, "STORE_STOREFRONT_PUBLIC_BASE_URL", ""), "/"),
			PlaceholderImage: stringWithDefault(lookup, "STORE_STOREFRONT_PLACEHOLDER_IMAGE", defaultPlaceholderImage),
		},
	}

	// Firestore project defaults to Firebase project when unspecified.
	if cfg.Firestore.ProjectID == "" {
		cfg.Firestore.ProjectID = cfg.Firebase.ProjectID
	}

	secretFields := []*string{
		&cfg.Firebase.WebAPIKey,
		&cfg.Cache.RedisPassword,
		&cfg.Mail.SendGridAPIKey,
	}
	for _, field := range secretFields {
		resolved, err := resolveSecret(ctx, *field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*field = resolved
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
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

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Server.RequestTimeout <= 0 {
		missing = append(missing, "Server.RequestTimeout")
	}
	if cfg.Firebase.ProjectID == "" {
		missing = append(missing, "Firebase.ProjectID")
	}
	if cfg.Firestore.ProjectID == "" {
		missing = append(missing, "Firestore.ProjectID")
	}
	if cfg.Storage.ImagesBucket == "" {
		missing = append(missing, "Storage.ImagesBucket")
	}
	if cfg.Storage.MaxUploadBytes <= 0 {
		missing = append(missing, "Storage.MaxUploadBytes")
	}
	if cfg.Cache.Enabled() && cfg.Cache.TTL <= 0 {
		missing = append(missing, "Cache.TTL")
	}
	if cfg.Events.Enabled && strings.TrimSpace(cfg.Events.TopicID) == "" {
		missing = append(missing, "Events.TopicID")
	}
	if cfg.Mail.SendGridAPIKey != "" {
		if cfg.Mail.FromAddress == "" {
			missing = append(missing, "Mail.FromAddress")
		}
		if cfg.Mail.NotifyAddress == "" {
			missing = append(missing, "Mail.NotifyAddress")
		}
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func isSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "sm://") {
		return "secret://" + strings.TrimPrefix(trimmed, "sm://")
	}
	return trimmed
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", path, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

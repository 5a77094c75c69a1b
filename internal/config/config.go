// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"time"
)

// Default configuration values.
const (
	DefaultHost                = "0.0.0.0"
	DefaultPort                = 8080
	DefaultLogLevel            = "INFO"
	DefaultSimilarityThreshold = 0.8
	DefaultCacheTTL            = 3600 * time.Second
	DefaultStoreTimeout        = 5 * time.Second
	DefaultStoreRetries        = 3
	DefaultStoreRetryDelay     = 200 * time.Millisecond
	DefaultExtractorTimeout    = 30 * time.Second
	DefaultExtractorRetries    = 2
	DefaultExtractorDelay      = 1 * time.Second
	DefaultExtractorBackoff    = 2.0
	DefaultMaxImageBytes       = 5 * 1024 * 1024
	DefaultNearMatchCutoff     = 0.05
)

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

// ExtractorConfig configures the external face-embedding extractor endpoint.
type ExtractorConfig struct {
	baseURL       string
	apiKey        string
	model         string
	timeout       time.Duration
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
}

// NewExtractorConfig creates an ExtractorConfig with defaults.
func NewExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		timeout:       DefaultExtractorTimeout,
		maxRetries:    DefaultExtractorRetries,
		initialDelay:  DefaultExtractorDelay,
		backoffFactor: DefaultExtractorBackoff,
	}
}

// BaseURL returns the extractor service base URL.
func (e ExtractorConfig) BaseURL() string { return e.baseURL }

// APIKey returns the extractor API key.
func (e ExtractorConfig) APIKey() string { return e.apiKey }

// Model returns the embedding model identifier.
func (e ExtractorConfig) Model() string { return e.model }

// Timeout returns the per-request timeout.
func (e ExtractorConfig) Timeout() time.Duration { return e.timeout }

// MaxRetries returns the maximum retry count.
func (e ExtractorConfig) MaxRetries() int { return e.maxRetries }

// InitialDelay returns the initial retry delay.
func (e ExtractorConfig) InitialDelay() time.Duration { return e.initialDelay }

// BackoffFactor returns the retry backoff multiplier.
func (e ExtractorConfig) BackoffFactor() float64 { return e.backoffFactor }

// IsConfigured returns true if the extractor has a base URL.
func (e ExtractorConfig) IsConfigured() bool { return e.baseURL != "" }

// ExtractorOption is a functional option for ExtractorConfig.
type ExtractorOption func(*ExtractorConfig)

// WithExtractorBaseURL sets the base URL.
func WithExtractorBaseURL(url string) ExtractorOption {
	return func(e *ExtractorConfig) { e.baseURL = url }
}

// WithExtractorAPIKey sets the API key.
func WithExtractorAPIKey(key string) ExtractorOption {
	return func(e *ExtractorConfig) { e.apiKey = key }
}

// WithExtractorModel sets the model identifier.
func WithExtractorModel(model string) ExtractorOption {
	return func(e *ExtractorConfig) { e.model = model }
}

// WithExtractorTimeout sets the request timeout.
func WithExtractorTimeout(d time.Duration) ExtractorOption {
	return func(e *ExtractorConfig) { e.timeout = d }
}

// WithExtractorMaxRetries sets the retry count.
func WithExtractorMaxRetries(n int) ExtractorOption {
	return func(e *ExtractorConfig) { e.maxRetries = n }
}

// WithExtractorInitialDelay sets the initial retry delay.
func WithExtractorInitialDelay(d time.Duration) ExtractorOption {
	return func(e *ExtractorConfig) { e.initialDelay = d }
}

// WithExtractorBackoffFactor sets the backoff multiplier.
func WithExtractorBackoffFactor(f float64) ExtractorOption {
	return func(e *ExtractorConfig) { e.backoffFactor = f }
}

// NewExtractorConfigWithOptions creates an ExtractorConfig with options.
func NewExtractorConfigWithOptions(opts ...ExtractorOption) ExtractorConfig {
	e := NewExtractorConfig()
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// StoreConfig configures embedding store access.
type StoreConfig struct {
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
}

// NewStoreConfig creates a StoreConfig with defaults.
func NewStoreConfig() StoreConfig {
	return StoreConfig{
		timeout:    DefaultStoreTimeout,
		maxRetries: DefaultStoreRetries,
		retryDelay: DefaultStoreRetryDelay,
	}
}

// Timeout returns the per-call store timeout.
func (s StoreConfig) Timeout() time.Duration { return s.timeout }

// MaxRetries returns the bounded retry count for transient corpus reads.
func (s StoreConfig) MaxRetries() int { return s.maxRetries }

// RetryDelay returns the delay between corpus read retries.
func (s StoreConfig) RetryDelay() time.Duration { return s.retryDelay }

// WithTimeout returns a new config with the given timeout.
func (s StoreConfig) WithTimeout(d time.Duration) StoreConfig {
	s.timeout = d
	return s
}

// WithMaxRetries returns a new config with the given retry count.
func (s StoreConfig) WithMaxRetries(n int) StoreConfig {
	s.maxRetries = n
	return s
}

// WithRetryDelay returns a new config with the given retry delay.
func (s StoreConfig) WithRetryDelay(d time.Duration) StoreConfig {
	s.retryDelay = d
	return s
}

// AppConfig holds the main application configuration.
type AppConfig struct {
	host                string
	port                int
	dbURL               string
	logLevel            string
	logFormat           LogFormat
	similarityThreshold float64
	nearMatchCutoff     float64
	cacheTTL            time.Duration
	maxImageBytes       int64
	apiKeys             []string
	extractor           ExtractorConfig
	store               StoreConfig
}

// NewAppConfig creates an AppConfig with defaults.
func NewAppConfig() AppConfig {
	return AppConfig{
		host:                DefaultHost,
		port:                DefaultPort,
		dbURL:               "sqlite:///facegate.db",
		logLevel:            DefaultLogLevel,
		logFormat:           LogFormatPretty,
		similarityThreshold: DefaultSimilarityThreshold,
		nearMatchCutoff:     DefaultNearMatchCutoff,
		cacheTTL:            DefaultCacheTTL,
		maxImageBytes:       DefaultMaxImageBytes,
		apiKeys:             []string{},
		extractor:           NewExtractorConfig(),
		store:               NewStoreConfig(),
	}
}

// Host returns the server host to bind to.
func (c AppConfig) Host() string { return c.host }

// Port returns the server port to listen on.
func (c AppConfig) Port() int { return c.port }

// Addr returns the combined host:port address.
func (c AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// DBURL returns the database connection URL.
func (c AppConfig) DBURL() string { return c.dbURL }

// LogLevel returns the log level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// SimilarityThreshold returns the minimum cosine similarity for a positive
// identity match.
func (c AppConfig) SimilarityThreshold() float64 { return c.similarityThreshold }

// NearMatchCutoff returns the display cutoff for near-match listings.
func (c AppConfig) NearMatchCutoff() float64 { return c.nearMatchCutoff }

// CacheTTL returns the corpus cache time-to-live.
func (c AppConfig) CacheTTL() time.Duration { return c.cacheTTL }

// MaxImageBytes returns the maximum accepted upload size.
func (c AppConfig) MaxImageBytes() int64 { return c.maxImageBytes }

// APIKeys returns the configured API keys.
func (c AppConfig) APIKeys() []string {
	keys := make([]string, len(c.apiKeys))
	copy(keys, c.apiKeys)
	return keys
}

// Extractor returns the extractor endpoint config.
func (c AppConfig) Extractor() ExtractorConfig { return c.extractor }

// Store returns the store access config.
func (c AppConfig) Store() StoreConfig { return c.store }

// AppConfigOption is a functional option for AppConfig.
type AppConfigOption func(*AppConfig)

// WithHost sets the server host.
func WithHost(host string) AppConfigOption {
	return func(c *AppConfig) { c.host = host }
}

// WithPort sets the server port.
func WithPort(port int) AppConfigOption {
	return func(c *AppConfig) { c.port = port }
}

// WithDBURL sets the database URL.
func WithDBURL(url string) AppConfigOption {
	return func(c *AppConfig) { c.dbURL = url }
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) AppConfigOption {
	return func(c *AppConfig) { c.logLevel = level }
}

// WithLogFormat sets the log format.
func WithLogFormat(format LogFormat) AppConfigOption {
	return func(c *AppConfig) { c.logFormat = format }
}

// WithSimilarityThreshold sets the match acceptance threshold.
func WithSimilarityThreshold(t float64) AppConfigOption {
	return func(c *AppConfig) { c.similarityThreshold = t }
}

// WithNearMatchCutoff sets the near-match display cutoff.
func WithNearMatchCutoff(cutoff float64) AppConfigOption {
	return func(c *AppConfig) { c.nearMatchCutoff = cutoff }
}

// WithCacheTTL sets the corpus cache TTL.
func WithCacheTTL(d time.Duration) AppConfigOption {
	return func(c *AppConfig) { c.cacheTTL = d }
}

// WithMaxImageBytes sets the maximum accepted upload size.
func WithMaxImageBytes(n int64) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.maxImageBytes = n
		}
	}
}

// WithAPIKeys sets the API keys.
func WithAPIKeys(keys []string) AppConfigOption {
	return func(c *AppConfig) {
		c.apiKeys = make([]string, len(keys))
		copy(c.apiKeys, keys)
	}
}

// WithExtractorConfig sets the extractor endpoint config.
func WithExtractorConfig(e ExtractorConfig) AppConfigOption {
	return func(c *AppConfig) { c.extractor = e }
}

// WithStoreConfig sets the store access config.
func WithStoreConfig(s StoreConfig) AppConfigOption {
	return func(c *AppConfig) { c.store = s }
}

// NewAppConfigWithOptions creates an AppConfig with functional options.
func NewAppConfigWithOptions(opts ...AppConfigOption) AppConfig {
	c := NewAppConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Apply returns a new AppConfig with the given options applied.
func (c AppConfig) Apply(opts ...AppConfigOption) AppConfig {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// LogAttrs returns slog attributes describing the configuration.
// Secrets are masked or reported as counts.
func (c AppConfig) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("addr", c.Addr()),
		slog.String("log_level", c.logLevel),
		slog.String("db_url", c.maskedDBURL()),
		slog.Float64("similarity_threshold", c.similarityThreshold),
		slog.Duration("cache_ttl", c.cacheTTL),
		slog.String("extractor_base_url", c.extractor.BaseURL()),
		slog.Int("api_keys_count", len(c.apiKeys)),
	}
}

func (c AppConfig) maskedDBURL() string {
	if c.dbURL == "" {
		return "(default)"
	}
	if len(c.dbURL) >= 7 && c.dbURL[:7] == "sqlite:" {
		return c.dbURL
	}
	return "postgres://***@***"
}

package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvConfig holds all environment-based configuration.
// Field names map directly to environment variables; nested structs use an
// underscore delimiter (e.g., EXTRACTOR_BASE_URL).
type EnvConfig struct {
	// Host is the server host to bind to.
	// Env: HOST (default: 0.0.0.0)
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// Port is the server port to listen on.
	// Env: PORT (default: 8080)
	Port int `envconfig:"PORT" default:"8080"`

	// DBURL is the database connection URL.
	// Env: DB_URL
	// Default: sqlite:///facegate.db
	DBURL string `envconfig:"DB_URL"`

	// LogLevel is the log verbosity level.
	// Env: LOG_LEVEL (default: INFO)
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (pretty or json).
	// Env: LOG_FORMAT (default: pretty)
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// SimilarityThreshold is the minimum cosine similarity for a positive
	// identity match.
	// Env: SIMILARITY_THRESHOLD (default: 0.8)
	SimilarityThreshold float64 `envconfig:"SIMILARITY_THRESHOLD" default:"0.8"`

	// NearMatchCutoff is the display cutoff for near-match listings.
	// Env: NEAR_MATCH_CUTOFF (default: 0.05)
	NearMatchCutoff float64 `envconfig:"NEAR_MATCH_CUTOFF" default:"0.05"`

	// CacheTTLSeconds is the corpus cache time-to-live in seconds.
	// Env: CACHE_TTL_SECONDS (default: 3600)
	CacheTTLSeconds float64 `envconfig:"CACHE_TTL_SECONDS" default:"3600"`

	// MaxImageBytes is the maximum accepted upload size in bytes.
	// Env: MAX_IMAGE_BYTES (default: 5242880)
	MaxImageBytes int64 `envconfig:"MAX_IMAGE_BYTES" default:"5242880"`

	// APIKeys is a comma-separated list of valid API keys.
	// Env: API_KEYS
	APIKeys string `envconfig:"API_KEYS"`

	// Extractor configures the face-embedding extractor service.
	Extractor ExtractorEnv `envconfig:"EXTRACTOR"`

	// Store configures embedding store access.
	Store StoreEnv `envconfig:"STORE"`
}

// ExtractorEnv holds environment configuration for the extractor endpoint.
type ExtractorEnv struct {
	// BaseURL is the base URL for the extractor service.
	// Env: EXTRACTOR_BASE_URL
	BaseURL string `envconfig:"BASE_URL"`

	// APIKey is the API key for authentication.
	// Env: EXTRACTOR_API_KEY
	APIKey string `envconfig:"API_KEY"`

	// Model is the embedding model identifier.
	// Env: EXTRACTOR_MODEL
	Model string `envconfig:"MODEL"`

	// Timeout is the request timeout in seconds.
	// Env: EXTRACTOR_TIMEOUT (default: 30)
	Timeout float64 `envconfig:"TIMEOUT" default:"30"`

	// MaxRetries is the maximum number of retries.
	// Env: EXTRACTOR_MAX_RETRIES (default: 2)
	MaxRetries int `envconfig:"MAX_RETRIES" default:"2"`

	// InitialDelay is the initial retry delay in seconds.
	// Env: EXTRACTOR_INITIAL_DELAY (default: 1.0)
	InitialDelay float64 `envconfig:"INITIAL_DELAY" default:"1.0"`

	// BackoffFactor is the retry backoff multiplier.
	// Env: EXTRACTOR_BACKOFF_FACTOR (default: 2.0)
	BackoffFactor float64 `envconfig:"BACKOFF_FACTOR" default:"2.0"`
}

// StoreEnv holds environment configuration for embedding store access.
type StoreEnv struct {
	// Timeout is the per-call store timeout in seconds.
	// Env: STORE_TIMEOUT (default: 5)
	Timeout float64 `envconfig:"TIMEOUT" default:"5"`

	// MaxRetries is the bounded retry count for transient corpus reads.
	// Env: STORE_MAX_RETRIES (default: 3)
	MaxRetries int `envconfig:"MAX_RETRIES" default:"3"`

	// RetryDelaySeconds is the delay between corpus read retries in seconds.
	// Env: STORE_RETRY_DELAY_SECONDS (default: 0.2)
	RetryDelaySeconds float64 `envconfig:"RETRY_DELAY_SECONDS" default:"0.2"`
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// LoadFromEnvWithPrefix loads configuration with a custom prefix.
// For example, prefix "FACEGATE" would require FACEGATE_DB_URL instead of DB_URL.
func LoadFromEnvWithPrefix(prefix string) (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// ToAppConfig converts EnvConfig to AppConfig.
func (e EnvConfig) ToAppConfig() AppConfig {
	cfg := NewAppConfig()

	if e.Host != "" {
		cfg = cfg.Apply(WithHost(e.Host))
	}
	if e.Port != 0 {
		cfg = cfg.Apply(WithPort(e.Port))
	}
	if e.DBURL != "" {
		cfg = cfg.Apply(WithDBURL(e.DBURL))
	}
	if e.LogLevel != "" {
		cfg = cfg.Apply(WithLogLevel(e.LogLevel))
	}
	if e.LogFormat != "" {
		cfg = cfg.Apply(WithLogFormat(ParseLogFormat(e.LogFormat)))
	}
	if e.SimilarityThreshold > 0 {
		cfg = cfg.Apply(WithSimilarityThreshold(e.SimilarityThreshold))
	}
	if e.NearMatchCutoff > 0 {
		cfg = cfg.Apply(WithNearMatchCutoff(e.NearMatchCutoff))
	}
	if e.CacheTTLSeconds > 0 {
		cfg = cfg.Apply(WithCacheTTL(secondsToDuration(e.CacheTTLSeconds)))
	}
	if e.MaxImageBytes > 0 {
		cfg = cfg.Apply(WithMaxImageBytes(e.MaxImageBytes))
	}
	if e.APIKeys != "" {
		cfg = cfg.Apply(WithAPIKeys(ParseAPIKeys(e.APIKeys)))
	}
	if e.Extractor.IsConfigured() {
		cfg = cfg.Apply(WithExtractorConfig(e.Extractor.ToExtractorConfig()))
	}
	cfg = cfg.Apply(WithStoreConfig(e.Store.ToStoreConfig()))

	return cfg
}

// IsConfigured returns true if the extractor has a base URL configured.
func (e ExtractorEnv) IsConfigured() bool {
	return e.BaseURL != ""
}

// ToExtractorConfig converts ExtractorEnv to ExtractorConfig.
func (e ExtractorEnv) ToExtractorConfig() ExtractorConfig {
	opts := []ExtractorOption{
		WithExtractorBaseURL(e.BaseURL),
		WithExtractorTimeout(secondsToDuration(e.Timeout)),
		WithExtractorMaxRetries(e.MaxRetries),
		WithExtractorInitialDelay(secondsToDuration(e.InitialDelay)),
		WithExtractorBackoffFactor(e.BackoffFactor),
	}
	if e.APIKey != "" {
		opts = append(opts, WithExtractorAPIKey(e.APIKey))
	}
	if e.Model != "" {
		opts = append(opts, WithExtractorModel(e.Model))
	}
	return NewExtractorConfigWithOptions(opts...)
}

// ToStoreConfig converts StoreEnv to StoreConfig.
func (e StoreEnv) ToStoreConfig() StoreConfig {
	cfg := NewStoreConfig()
	if e.Timeout > 0 {
		cfg = cfg.WithTimeout(secondsToDuration(e.Timeout))
	}
	if e.MaxRetries > 0 {
		cfg = cfg.WithMaxRetries(e.MaxRetries)
	}
	if e.RetryDelaySeconds > 0 {
		cfg = cfg.WithRetryDelay(secondsToDuration(e.RetryDelaySeconds))
	}
	return cfg
}

// ParseAPIKeys splits a comma-separated API key list, trimming whitespace and
// dropping empty entries.
func ParseAPIKeys(raw string) []string {
	parts := strings.Split(raw, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		if k := strings.TrimSpace(p); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// ParseLogFormat parses a log format string, defaulting to pretty.
func ParseLogFormat(raw string) LogFormat {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "json":
		return LogFormatJSON
	default:
		return LogFormatPretty
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

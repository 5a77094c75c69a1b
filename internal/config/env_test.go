package config

import (
	"testing"
	"time"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.Host != "0.0.0.0" {
		t.Errorf("Host = %v, want '0.0.0.0'", cfg.Host)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %v, want 8080", cfg.Port)
	}
	if cfg.SimilarityThreshold != 0.8 {
		t.Errorf("SimilarityThreshold = %v, want 0.8", cfg.SimilarityThreshold)
	}
	if cfg.CacheTTLSeconds != 3600 {
		t.Errorf("CacheTTLSeconds = %v, want 3600", cfg.CacheTTLSeconds)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9191")
	t.Setenv("SIMILARITY_THRESHOLD", "0.72")
	t.Setenv("CACHE_TTL_SECONDS", "120")
	t.Setenv("API_KEYS", "alpha, beta,")
	t.Setenv("EXTRACTOR_BASE_URL", "http://extractor:8001")
	t.Setenv("EXTRACTOR_TIMEOUT", "12")

	envCfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	cfg := envCfg.ToAppConfig()

	if cfg.Addr() != "127.0.0.1:9191" {
		t.Errorf("Addr() = %v, want '127.0.0.1:9191'", cfg.Addr())
	}
	if cfg.SimilarityThreshold() != 0.72 {
		t.Errorf("SimilarityThreshold() = %v, want 0.72", cfg.SimilarityThreshold())
	}
	if cfg.CacheTTL() != 2*time.Minute {
		t.Errorf("CacheTTL() = %v, want 2m", cfg.CacheTTL())
	}
	if got := cfg.APIKeys(); len(got) != 2 || got[0] != "alpha" || got[1] != "beta" {
		t.Errorf("APIKeys() = %v, want [alpha beta]", got)
	}
	if !cfg.Extractor().IsConfigured() {
		t.Error("extractor should be configured from env")
	}
	if cfg.Extractor().Timeout() != 12*time.Second {
		t.Errorf("extractor Timeout() = %v, want 12s", cfg.Extractor().Timeout())
	}
}

func TestLoadFromEnvWithPrefix(t *testing.T) {
	t.Setenv("FACEGATE_PORT", "7070")

	cfg, err := LoadFromEnvWithPrefix("FACEGATE")
	if err != nil {
		t.Fatalf("LoadFromEnvWithPrefix() error = %v", err)
	}
	if cfg.Port != 7070 {
		t.Errorf("Port = %v, want 7070", cfg.Port)
	}
}

func TestParseAPIKeys(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", nil},
		{"single", "k1", []string{"k1"}},
		{"multiple with spaces", " k1 , k2 ", []string{"k1", "k2"}},
		{"trailing comma", "k1,k2,", []string{"k1", "k2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAPIKeys(tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("ParseAPIKeys(%q) = %v, want %v", tt.raw, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParseAPIKeys(%q)[%d] = %v, want %v", tt.raw, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseLogFormat(t *testing.T) {
	if ParseLogFormat("json") != LogFormatJSON {
		t.Error("ParseLogFormat('json') should be json")
	}
	if ParseLogFormat("JSON") != LogFormatJSON {
		t.Error("ParseLogFormat('JSON') should be json")
	}
	if ParseLogFormat("pretty") != LogFormatPretty {
		t.Error("ParseLogFormat('pretty') should be pretty")
	}
	if ParseLogFormat("unknown") != LogFormatPretty {
		t.Error("unknown format should fall back to pretty")
	}
}

func TestLoadConfigMissingDotEnv(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/.env")
	if err != nil {
		t.Fatalf("LoadConfig() with missing file should not error, got %v", err)
	}
	if cfg.Port() != 8080 {
		t.Errorf("Port() = %v, want default 8080", cfg.Port())
	}
}

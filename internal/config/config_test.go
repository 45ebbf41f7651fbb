package config

import (
	"errors"
	"testing"
	"time"
)

func TestResolveCSRFSecret(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		wantSecret  string
		wantDefault bool
		wantErr     error
	}{
		{name: "configured secret kept", cfg: Config{CSRFSecret: "s3cr3t"}, wantSecret: "s3cr3t"},
		{name: "configured secret kept in debug", cfg: Config{CSRFSecret: "s3cr3t", Debug: true}, wantSecret: "s3cr3t"},
		{name: "missing secret refused", cfg: Config{}, wantErr: ErrMissingCSRFSecret},
		{name: "missing secret in debug", cfg: Config{Debug: true}, wantSecret: devCSRFSecret, wantDefault: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			usedDefault, err := cfg.ResolveCSRFSecret()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ResolveCSRFSecret() error = %v, want %v", err, tt.wantErr)
			}
			if usedDefault != tt.wantDefault {
				t.Errorf("usedDefault = %v, want %v", usedDefault, tt.wantDefault)
			}
			if err == nil && cfg.CSRFSecret != tt.wantSecret {
				t.Errorf("CSRFSecret = %q, want %q", cfg.CSRFSecret, tt.wantSecret)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CSRF_SECRET", "")
	t.Setenv("TRUST_PROXY", "")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "")
	t.Setenv("TOKEN_TTL", "")

	cfg := Load()

	if cfg.CSRFSecret != "" {
		t.Errorf("CSRFSecret default = %q, want empty", cfg.CSRFSecret)
	}
	if cfg.TrustProxy {
		t.Error("TrustProxy should default to false")
	}
	if cfg.RateLimitPerMinute != 30 {
		t.Errorf("RateLimitPerMinute = %d, want 30", cfg.RateLimitPerMinute)
	}
	if cfg.TokenTTL != 48*time.Hour {
		t.Errorf("TokenTTL = %v, want 48h", cfg.TokenTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TRUST_PROXY", "true")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "0")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("APP_BASE_URL", "https://links.example.com/")

	cfg := Load()

	if !cfg.TrustProxy {
		t.Error("TrustProxy should be true")
	}
	if cfg.RateLimitPerMinute != 0 {
		t.Errorf("RateLimitPerMinute = %d, want 0", cfg.RateLimitPerMinute)
	}
	if cfg.TokenTTL != 2*time.Hour {
		t.Errorf("TokenTTL = %v, want 2h", cfg.TokenTTL)
	}
	if cfg.AppBaseURL != "https://links.example.com" {
		t.Errorf("AppBaseURL = %q, want trailing slash trimmed", cfg.AppBaseURL)
	}
}

package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		ServiceURL:    "https://cinegen.example.com",
		GeminiAPIKey:  "key",
		SessionSecret: "secret",
	}
}

func TestValidateEssentialConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"最小構成", func(*Config) {}, ""},
		{"HTTP は拒否", func(c *Config) { c.ServiceURL = "http://cinegen.example.com" }, "HTTPS"},
		{"API キー必須", func(c *Config) { c.GeminiAPIKey = "" }, "GEMINI_API_KEY"},
		{"セッション秘密鍵必須", func(c *Config) { c.SessionSecret = "" }, "SESSION_SECRET"},
		{"暗号化キーの長さ", func(c *Config) { c.SessionEncryptKey = "short" }, "SESSION_ENCRYPT_KEY"},
		{"暗号化キー 32 バイト", func(c *Config) { c.SessionEncryptKey = strings.Repeat("k", 32) }, ""},
		{"OAuth は ID と秘密鍵の組", func(c *Config) { c.GoogleClientID = "id" }, "set together"},
		{"OAuth には許可リストが必要", func(c *Config) { c.GoogleClientID, c.GoogleClientSecret = "id", "s" }, "authorization lists"},
		{"OAuth と許可ドメイン", func(c *Config) {
			c.GoogleClientID, c.GoogleClientSecret = "id", "s"
			c.AllowedDomains = []string{"example.com"}
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := ValidateEssentialConfig(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("ValidateEssentialConfig() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("ValidateEssentialConfig() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("既定値", func(t *testing.T) {
		for _, key := range []string{"PORT", "GEMINI_MODEL", "IMAGE_RATE_INTERVAL", "STYLE_CACHE_TTL", "MAX_UPLOAD_MB", "ALLOWED_EMAILS"} {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
		cfg := LoadConfig()
		if cfg.Port != "8080" || cfg.GeminiModel != DefaultModel {
			t.Errorf("cfg = %+v", cfg)
		}
		if cfg.ImageRateInterval != 0 || cfg.StyleCacheTTL != DefaultStyleCacheTTL {
			t.Errorf("durations = %v, %v", cfg.ImageRateInterval, cfg.StyleCacheTTL)
		}
		if cfg.MaxUploadBytes != DefaultMaxUploadMB<<20 {
			t.Errorf("MaxUploadBytes = %d", cfg.MaxUploadBytes)
		}
	})

	t.Run("環境変数を読む", func(t *testing.T) {
		t.Setenv("IMAGE_RATE_INTERVAL", "1500ms")
		t.Setenv("STYLE_CACHE_TTL", "oops")
		t.Setenv("MAX_UPLOAD_MB", "4")
		t.Setenv("ALLOWED_EMAILS", " Alice@Example.com, ,bob@example.com ")

		cfg := LoadConfig()
		if cfg.ImageRateInterval != 1500*time.Millisecond {
			t.Errorf("ImageRateInterval = %v", cfg.ImageRateInterval)
		}
		if cfg.StyleCacheTTL != DefaultStyleCacheTTL {
			t.Errorf("StyleCacheTTL = %v, want default", cfg.StyleCacheTTL)
		}
		if cfg.MaxUploadBytes != 4<<20 {
			t.Errorf("MaxUploadBytes = %d", cfg.MaxUploadBytes)
		}
		if strings.Join(cfg.AllowedEmails, ",") != "alice@example.com,bob@example.com" {
			t.Errorf("AllowedEmails = %v", cfg.AllowedEmails)
		}
	})
}

func TestGetGCSObjectURL(t *testing.T) {
	cfg := Config{GCSBucket: "bucket", BaseOutputDir: "output"}
	if got := cfg.GetGCSObjectURL(cfg.GetWorkDir("run")); got != "gs://bucket/output/run" {
		t.Errorf("GetGCSObjectURL() = %q", got)
	}
	if got := cfg.GetGCSObjectURL("gs://other/x"); got != "gs://other/x" {
		t.Errorf("GetGCSObjectURL() = %q", got)
	}
	if got := (Config{}).GetGCSObjectURL("output/run"); got != "output/run" {
		t.Errorf("GetGCSObjectURL() without bucket = %q", got)
	}
}

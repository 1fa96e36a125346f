package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func missingEnv(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestDefaults(t *testing.T) {
	cfg, err := decode(New())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Model.Provider != ProviderOpenAI {
		t.Fatalf("expected openai provider, got %q", cfg.Model.Provider)
	}
	if cfg.Refresh.Interval != 5*time.Minute {
		t.Fatalf("expected 5m refresh, got %v", cfg.Refresh.Interval)
	}
	if cfg.Voice.Chunk != 2*time.Second || !cfg.Voice.Chime {
		t.Fatalf("unexpected voice defaults: %+v", cfg.Voice)
	}
	if !strings.HasSuffix(cfg.Store.SQLitePath, "snapcook.db") {
		t.Fatalf("unexpected sqlite path %q", cfg.Store.SQLitePath)
	}
}

func TestLoadFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"toml", "snapcook.toml", `
allergies = "peanuts"

[model]
provider = "Anthropic"
api_key = "sk-test"

[refresh]
interval = "10m"

[archive]
bucket = "receipts"
`},
		{"yaml", "snapcook.yaml", `
allergies: peanuts
model:
  provider: anthropic
  api_key: sk-test
refresh:
  interval: 10m
archive:
  bucket: receipts
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(Options{File: writeFile(t, tt.file, tt.content), EnvFile: missingEnv(t)})
			if err != nil {
				t.Fatal(err)
			}
			if cfg.Model.Provider != ProviderAnthropic || cfg.Model.APIKey != "sk-test" {
				t.Fatalf("unexpected model config: %+v", cfg.Model)
			}
			if cfg.Refresh.Interval != 10*time.Minute {
				t.Fatalf("expected 10m, got %v", cfg.Refresh.Interval)
			}
			if cfg.Allergies != "peanuts" {
				t.Fatalf("expected allergies, got %q", cfg.Allergies)
			}
			if s3 := cfg.Archive.S3(); s3.Bucket != "receipts" || s3.Region != "us-east-1" {
				t.Fatalf("unexpected archive: %+v", s3)
			}
			if err := cfg.ModelReady(); err != nil {
				t.Fatalf("expected anthropic to be ready: %v", err)
			}
		})
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "snapcook.toml", `
[store]
postgres_dsn = "postgres://file"
`)
	t.Setenv("SNAPCOOK_STORE_POSTGRES_DSN", "postgres://env")
	t.Setenv("SNAPCOOK_MODEL_NAME", "gpt-4o")

	cfg, err := Load(Options{File: path, EnvFile: missingEnv(t)})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store.PostgresDSN != "postgres://env" {
		t.Fatalf("expected env DSN, got %q", cfg.Store.PostgresDSN)
	}
	if cfg.Model.Name != "gpt-4o" {
		t.Fatalf("expected env model name, got %q", cfg.Model.Name)
	}
}

func TestLegacyEnvNames(t *testing.T) {
	t.Setenv("GPT_CHAT_KEY", "legacy-key")
	t.Setenv("GPT_CHAT_ENDPOINT", "https://example.test/chat")

	cfg, err := decode(New())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Model.APIKey != "legacy-key" || cfg.Model.Endpoint != "https://example.test/chat" {
		t.Fatalf("legacy env not honored: %+v", cfg.Model)
	}
	if err := cfg.ModelReady(); err != nil {
		t.Fatal(err)
	}
}

func TestEnvFile(t *testing.T) {
	env := writeFile(t, "test.env", "SNAPCOOK_ALLERGIES=shellfish\n")
	t.Setenv("SNAPCOOK_ALLERGIES", "")
	os.Unsetenv("SNAPCOOK_ALLERGIES")

	cfg, err := Load(Options{File: writeFile(t, "snapcook.toml", ""), EnvFile: env})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Allergies != "shellfish" {
		t.Fatalf("expected allergies from env file, got %q", cfg.Allergies)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"ok", func(*Config) {}, false},
		{"unknown provider", func(c *Config) { c.Model.Provider = "mystery" }, true},
		{"negative refresh", func(c *Config) { c.Refresh.Interval = -time.Second }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Model: ModelConfig{Provider: ProviderOpenAI}}
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestModelReady(t *testing.T) {
	cfg := Config{Model: ModelConfig{Provider: ProviderOpenAI, APIKey: "k"}}
	if err := cfg.ModelReady(); err == nil {
		t.Fatal("expected missing endpoint error")
	}
	cfg.Model.APIKey = ""
	if err := cfg.ModelReady(); err == nil {
		t.Fatal("expected missing key error")
	}
}

func TestMissingExplicitFile(t *testing.T) {
	_, err := Load(Options{File: filepath.Join(t.TempDir(), "nope.toml"), EnvFile: missingEnv(t)})
	if err == nil {
		t.Fatal("expected error for a missing explicit config file")
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type testConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Transport     struct {
		StorageURL string        `mapstructure:"storage_url"`
		Timeout    time.Duration `mapstructure:"timeout"`
	} `mapstructure:"transport"`
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("empty config gets name and environment", func(t *testing.T) {
		cfg := ServiceConfig{}
		cfg.ApplyDefaults()
		if cfg.Name != "cloudbatch" {
			t.Errorf("expected 'cloudbatch', got %q", cfg.Name)
		}
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if cfg.Logging.Level != "info" {
			t.Errorf("expected info level, got %q", cfg.Logging.Level)
		}
	})

	t.Run("debug raises log level", func(t *testing.T) {
		cfg := ServiceConfig{Debug: true}
		cfg.ApplyDefaults()
		if cfg.Logging.Level != "debug" {
			t.Errorf("expected debug level, got %q", cfg.Logging.Level)
		}
	})
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServiceConfig
		wantErr bool
		errMsg  string
	}{
		{"valid", ServiceConfig{Name: "svc", Environment: "production"}, false, ""},
		{"missing name", ServiceConfig{Environment: "production"}, true, "config.name is required"},
		{"invalid environment", ServiceConfig{Name: "svc", Environment: "qa"}, true, "config.environment must be one of"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.Logging.ApplyDefaults()
			err := tc.cfg.Validate()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !strings.Contains(err.Error(), tc.errMsg) {
					t.Errorf("expected error containing %q, got %q", tc.errMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoadConfigWithYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", `
name: batch-test
environment: staging
transport:
  storage_url: http://swift.local/v1/AUTH_test
  timeout: 5s
`)

	var cfg testConfig
	if err := LoadConfig("batch-test", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "batch-test" {
		t.Errorf("expected name 'batch-test', got %q", cfg.Name)
	}
	if cfg.Transport.StorageURL != "http://swift.local/v1/AUTH_test" {
		t.Errorf("unexpected storage url %q", cfg.Transport.StorageURL)
	}
	if cfg.Transport.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", cfg.Transport.Timeout)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", `
name: batch-test
transport:
  timeout: 5s
`)
	t.Setenv("CLOUDBATCH_TRANSPORT_TIMEOUT", "9s")
	t.Setenv("CLOUDBATCH_TRANSPORT_STORAGE_URL", "http://override/v1")

	var cfg testConfig
	if err := LoadConfig("batch-test", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Transport.Timeout != 9*time.Second {
		t.Errorf("expected env override 9s, got %v", cfg.Transport.Timeout)
	}
	if cfg.Transport.StorageURL != "http://override/v1" {
		t.Errorf("expected env override url, got %q", cfg.Transport.StorageURL)
	}
}

func TestLoadConfigEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", "CLOUDBATCH_NAME=from-dotenv\n")
	t.Cleanup(func() { os.Unsetenv("CLOUDBATCH_NAME") })

	var cfg testConfig
	if err := LoadConfig("batch-test", &cfg, WithConfigFile(filepath.Join(dir, "missing.yml")), WithEnvFile(envPath)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "from-dotenv" {
		t.Errorf("expected name from .env, got %q", cfg.Name)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("nonexistent-service", &cfg, WithConfigFile("/nonexistent/path.yml"))
	if err != nil {
		t.Fatalf("expected LoadConfig to succeed with missing file, got %v", err)
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", "name: [unterminated\n")
	var cfg testConfig
	if err := LoadConfig("svc", &cfg, WithConfigFile(path)); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool  { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error { return nil }

func TestResolverWithMockFS(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./cmd/cloudbatch/config.yml": true,
		"./.env":                      true,
	}}
	files := resolveFiles(fs, "cloudbatch", LoaderConfig{})
	if files.ConfigFile != "./cmd/cloudbatch/config.yml" {
		t.Errorf("expected config file at ./cmd/cloudbatch/config.yml, got %q", files.ConfigFile)
	}
	if files.EnvFile != "./.env" {
		t.Errorf("expected env file ./.env, got %q", files.EnvFile)
	}
}

func TestResolverExplicitPathsWin(t *testing.T) {
	fs := &mockFS{files: map[string]bool{"./config.yml": true}}
	files := resolveFiles(fs, "x", LoaderConfig{ConfigFile: "/etc/x.yml", EnvFile: "/etc/x.env"})
	if files.ConfigFile != "/etc/x.yml" || files.EnvFile != "/etc/x.env" {
		t.Errorf("explicit paths should be kept, got %+v", files)
	}
}

func TestGenerateEnvKeyVariants(t *testing.T) {
	got := generateEnvKeyVariants("TRANSPORT_STORAGE_URL")
	want := map[string]bool{
		"transport_storage_url": true,
		"transport.storage.url": true,
		"transport.storage_url": true,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d variants, got %v", len(want), got)
	}
	for _, v := range got {
		if !want[v] {
			t.Errorf("unexpected variant %q", v)
		}
	}
	if got := generateEnvKeyVariants("NAME"); len(got) != 1 || got[0] != "name" {
		t.Errorf("expected [name], got %v", got)
	}
}

func TestLoaderOptions(t *testing.T) {
	var lc LoaderConfig
	WithConfigFile("/c.yml")(&lc)
	WithEnvFile("/e.env")(&lc)
	if lc.ConfigFile != "/c.yml" || lc.EnvFile != "/e.env" {
		t.Errorf("options not applied: %+v", lc)
	}
}

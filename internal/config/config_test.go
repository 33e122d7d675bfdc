package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	work := t.TempDir()
	t.Setenv("HOME", home)
	chdir(t, work)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.BaseURL != defaultBaseURL {
		t.Fatalf("base_url = %q, want %q", cfg.BaseURL, defaultBaseURL)
	}
	if cfg.Model != defaultModel {
		t.Fatalf("model = %q, want %q", cfg.Model, defaultModel)
	}
	if cfg.Temperature != defaultTemperature {
		t.Fatalf("temperature = %g, want %g", cfg.Temperature, defaultTemperature)
	}
	if cfg.MaxTokens != defaultMaxTokens {
		t.Fatalf("max_tokens = %d, want %d", cfg.MaxTokens, defaultMaxTokens)
	}
	if cfg.RequestTimeout != defaultRequestTimeout {
		t.Fatalf("request_timeout = %s, want %s", cfg.RequestTimeout, defaultRequestTimeout)
	}
	if cfg.ExecTimeout != defaultExecTimeout {
		t.Fatalf("exec_timeout = %s, want %s", cfg.ExecTimeout, defaultExecTimeout)
	}
	if cfg.APIKey != "" {
		t.Fatalf("api_key = %q, want empty", cfg.APIKey)
	}
	wantHome := filepath.Join(home, ".scriptor", "config.toml")
	if cfg.HomePath != wantHome {
		t.Fatalf("home path = %q, want %q", cfg.HomePath, wantHome)
	}
}

func TestLoadOverlayProjectOverHome(t *testing.T) {
	home := t.TempDir()
	work := t.TempDir()
	t.Setenv("HOME", home)

	writeFile(t, filepath.Join(home, ".scriptor", "config.toml"), `
api_key = "home-key"
model = "home-model"
temperature = 0.5
request_timeout = "30s"
	`)

	writeFile(t, filepath.Join(work, ".scriptor", "config.toml"), `
model = "project-model"
max_tokens = 1024
exec_timeout = "10s"
	`)

	chdir(t, work)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.APIKey != "home-key" {
		t.Fatalf("api_key = %q, want %q", cfg.APIKey, "home-key")
	}
	if cfg.Model != "project-model" {
		t.Fatalf("model = %q, want %q", cfg.Model, "project-model")
	}
	if cfg.Temperature != 0.5 {
		t.Fatalf("temperature = %g, want 0.5", cfg.Temperature)
	}
	if cfg.MaxTokens != 1024 {
		t.Fatalf("max_tokens = %d, want 1024", cfg.MaxTokens)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Fatalf("request_timeout = %s, want 30s", cfg.RequestTimeout)
	}
	if cfg.ExecTimeout != 10*time.Second {
		t.Fatalf("exec_timeout = %s, want 10s", cfg.ExecTimeout)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	home := t.TempDir()
	work := t.TempDir()
	t.Setenv("HOME", home)

	writeFile(t, filepath.Join(home, ".scriptor", "config.toml"), `
request_timeout = "not-a-duration"
	`)

	chdir(t, work)

	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed request_timeout")
	}
}

func TestEnsureHomeConfigCreatesOnce(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path, created, err := EnsureHomeConfig()
	if err != nil {
		t.Fatalf("ensure config: %v", err)
	}
	if !created {
		t.Fatal("expected created = true on first run")
	}
	want := filepath.Join(home, ".scriptor", "config.toml")
	if path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read created file: %v", err)
	}
	if string(raw) != "api_key = \"\"\n" {
		t.Fatalf("created file content = %q", string(raw))
	}

	_, created, err = EnsureHomeConfig()
	if err != nil {
		t.Fatalf("ensure config again: %v", err)
	}
	if created {
		t.Fatal("expected created = false on second run")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := defaults()
		cfg.APIKey = "sk-test"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults with key", mutate: func(*Config) {}},
		{name: "missing key", mutate: func(cfg *Config) { cfg.APIKey = "  " }, wantErr: true},
		{name: "empty base url", mutate: func(cfg *Config) { cfg.BaseURL = "" }, wantErr: true},
		{name: "temperature out of range", mutate: func(cfg *Config) { cfg.Temperature = 2.0 }, wantErr: true},
		{name: "non-positive max tokens", mutate: func(cfg *Config) { cfg.MaxTokens = 0 }, wantErr: true},
		{name: "negative request timeout", mutate: func(cfg *Config) { cfg.RequestTimeout = -time.Second }, wantErr: true},
		{name: "negative exec timeout", mutate: func(cfg *Config) { cfg.ExecTimeout = -time.Second }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestValidateMissingKeyError(t *testing.T) {
	cfg := defaults()
	cfg.HomePath = "/home/user/.scriptor/config.toml"

	err := cfg.Validate()
	if !errors.Is(err, ErrAPIKeyMissing) {
		t.Fatalf("error = %v, want ErrAPIKeyMissing", err)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	t.Cleanup(func() {
		if chdirErr := os.Chdir(cwd); chdirErr != nil {
			t.Fatalf("restore cwd: %v", chdirErr)
		}
	})
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
}

// Package config loads runtime settings from TOML files. Defaults are
// overlaid first by ~/.scriptor/config.toml and then by a project-local
// .scriptor/config.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/scriptor-dev/scriptor/internal/generate"
)

const (
	configDirName  = ".scriptor"
	configFileName = "config.toml"

	defaultBaseURL        = "https://api.openai.com"
	defaultModel          = "gpt-4o-mini"
	defaultTemperature    = 0.25
	defaultMaxTokens      = 512
	defaultRequestTimeout = 120 * time.Second
	// Script execution is unbounded by default; set exec_timeout to guard
	// against runaway generated scripts.
	defaultExecTimeout = 0 * time.Second
)

// ErrAPIKeyMissing indicates the configuration file exists but carries no key.
var ErrAPIKeyMissing = errors.New("api_key is not set in the configuration file")

// Config stores runtime settings.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Temperature    float64
	MaxTokens      int
	RequestTimeout time.Duration
	ExecTimeout    time.Duration

	// HomePath is the resolved home config file location, for messaging.
	HomePath string
}

type fileConfig struct {
	APIKey         *string  `toml:"api_key"`
	BaseURL        *string  `toml:"base_url"`
	Model          *string  `toml:"model"`
	Temperature    *float64 `toml:"temperature"`
	MaxTokens      *int     `toml:"max_tokens"`
	RequestTimeout *string  `toml:"request_timeout"`
	ExecTimeout    *string  `toml:"exec_timeout"`
}

// Load reads config from ~/.scriptor/config.toml and overlays a project-local
// .scriptor/config.toml.
func Load() (*Config, error) {
	cfg := defaults()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	workingDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}

	cfg.HomePath = filepath.Join(homeDir, configDirName, configFileName)
	paths := []string{
		cfg.HomePath,
		filepath.Join(workingDir, configDirName, configFileName),
	}
	for _, path := range paths {
		if err := overlayFromFile(&cfg, path); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// EnsureHomeConfig creates the home config file with an empty api_key when it
// does not exist yet. It reports whether the file was created so the caller
// can instruct the user and stop.
func EnsureHomeConfig() (string, bool, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("resolve home directory: %w", err)
	}
	dir := filepath.Join(homeDir, configDirName)
	path := filepath.Join(dir, configFileName)

	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", false, fmt.Errorf("stat config file %q: %w", path, err)
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", false, fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte("api_key = \"\"\n"), 0o600); err != nil {
		return "", false, fmt.Errorf("create config file: %w", err)
	}
	return path, true, nil
}

// Validate checks the loaded settings against the accepted ranges.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config must not be nil")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: %s", ErrAPIKeyMissing, c.HomePath)
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("base_url must not be empty")
	}
	if err := generate.ValidateTemperature(c.Temperature); err != nil {
		return err
	}
	if err := generate.ValidateMaxTokens(c.MaxTokens); err != nil {
		return err
	}
	if c.RequestTimeout < 0 {
		return errors.New("request_timeout must not be negative")
	}
	if c.ExecTimeout < 0 {
		return errors.New("exec_timeout must not be negative")
	}
	return nil
}

func defaults() Config {
	return Config{
		BaseURL:        defaultBaseURL,
		Model:          defaultModel,
		Temperature:    defaultTemperature,
		MaxTokens:      defaultMaxTokens,
		RequestTimeout: defaultRequestTimeout,
		ExecTimeout:    defaultExecTimeout,
	}
}

func overlayFromFile(cfg *Config, path string) error {
	if cfg == nil {
		return errors.New("config must not be nil")
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat config file %q: %w", path, err)
	}

	var decoded fileConfig
	if _, err := toml.DecodeFile(path, &decoded); err != nil {
		return fmt.Errorf("decode config file %q: %w", path, err)
	}

	if decoded.APIKey != nil {
		cfg.APIKey = strings.TrimSpace(*decoded.APIKey)
	}
	if decoded.BaseURL != nil {
		cfg.BaseURL = strings.TrimSpace(*decoded.BaseURL)
	}
	if decoded.Model != nil {
		cfg.Model = strings.TrimSpace(*decoded.Model)
	}
	if decoded.Temperature != nil {
		cfg.Temperature = *decoded.Temperature
	}
	if decoded.MaxTokens != nil {
		cfg.MaxTokens = *decoded.MaxTokens
	}
	if decoded.RequestTimeout != nil {
		value, err := parseDuration(*decoded.RequestTimeout, "request_timeout", path)
		if err != nil {
			return err
		}
		cfg.RequestTimeout = value
	}
	if decoded.ExecTimeout != nil {
		value, err := parseDuration(*decoded.ExecTimeout, "exec_timeout", path)
		if err != nil {
			return err
		}
		cfg.ExecTimeout = value
	}
	return nil
}

func parseDuration(value, key, path string) (time.Duration, error) {
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s in %q: %w", key, path, err)
	}
	return parsed, nil
}

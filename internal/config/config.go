// Package config handles configuration loading for detectchat.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	apierrors "github.com/diogo/detectchat/internal/errors"
)

// Environment variable names for the backend base URL.
// LegacyBackendURLEnv is the variable name used by the browser widget build.
const (
	BackendURLEnv       = "BACKEND_URL"
	LegacyBackendURLEnv = "REACT_APP_BACKEND_URL"
)

// MarkdownConfig configures markdown rendering of replies
type MarkdownConfig struct {
	Style            string `json:"style" env:"DETECTCHAT_MARKDOWN_STYLE"` // "dark", "light", "notty" or path to JSON theme
	EnableEmoji      bool   `json:"enable_emoji"`
	PreserveNewLines bool   `json:"preserve_newlines"`
}

// Config represents the user configuration
type Config struct {
	// BackendURL is the base URL of the detection service; "/detect" is appended.
	// BACKEND_URL and REACT_APP_BACKEND_URL override it at call time, see BackendURLResolver.
	BackendURL string `json:"backend_url,omitempty"`
	// TimeoutSeconds bounds each detect call. Zero disables the timeout.
	TimeoutSeconds int `json:"timeout_seconds" env:"DETECTCHAT_TIMEOUT_SECONDS"`
	// OrderedReplies releases replies in submission order instead of arrival order.
	OrderedReplies  bool           `json:"ordered_replies" env:"DETECTCHAT_ORDERED_REPLIES"`
	Verbose         bool           `json:"verbose" env:"DETECTCHAT_VERBOSE"`
	SaveHistory     bool           `json:"save_history" env:"DETECTCHAT_SAVE_HISTORY"`
	CopyToClipboard bool           `json:"copy_to_clipboard" env:"DETECTCHAT_COPY_TO_CLIPBOARD"`
	TUITheme        string         `json:"tui_theme,omitempty" env:"DETECTCHAT_TUI_THEME"`
	LogFile         string         `json:"log_file,omitempty" env:"DETECTCHAT_LOG_FILE"`
	Telemetry       bool           `json:"telemetry" env:"DETECTCHAT_TELEMETRY"`
	Markdown        MarkdownConfig `json:"markdown"`
}

// DefaultMarkdownConfig returns the default markdown configuration
func DefaultMarkdownConfig() MarkdownConfig {
	return MarkdownConfig{
		Style:            "dark",
		EnableEmoji:      true,
		PreserveNewLines: true,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		TimeoutSeconds:  0,
		OrderedReplies:  false,
		Verbose:         false,
		SaveHistory:     false,
		CopyToClipboard: false,
		TUITheme:        "tokyonight",
		Telemetry:       false,
		Markdown:        DefaultMarkdownConfig(),
	}
}

// Timeout returns the per-call timeout; zero means none
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Validate checks values that cannot be expressed by the JSON types alone
func (c Config) Validate() error {
	if c.TimeoutSeconds < 0 {
		return apierrors.NewConfigError("timeout_seconds", "must not be negative")
	}
	if c.BackendURL != "" && !hasHTTPScheme(c.BackendURL) {
		return apierrors.NewConfigError("backend_url", "must start with http:// or https://")
	}
	return nil
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, ".detectchat"), nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	// 0o700: the directory holds transcripts and logs with user prompts
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// PathIn returns the config file path inside dir
func PathIn(dir string) string {
	return filepath.Join(dir, "config.json")
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env") into the
// process environment. Existing variables win and missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	return nil
}

// LoadConfigFile loads defaults and the config file in dir, without the
// environment. A missing file yields the defaults.
func LoadConfigFile(dir string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(PathIn(dir))
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
		}
	case !os.IsNotExist(err):
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	return cfg, nil
}

// LoadConfig loads the configuration: defaults, then the config file in
// dir, then .env and the process environment.
func LoadConfig(dir string) (Config, error) {
	cfg, err := LoadConfigFile(dir)
	if err != nil {
		return cfg, err
	}

	if err := LoadDotEnv(); err != nil {
		return cfg, err
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// SaveConfig writes the configuration into dir, creating it if needed
func SaveConfig(dir string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(PathIn(dir), data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// BackendURLResolver returns a function that resolves the backend base URL each
// time it is called. Precedence: override, BACKEND_URL, REACT_APP_BACKEND_URL, fallback.
// Whichever source wins must carry an http or https scheme.
func BackendURLResolver(override, fallback string) func() (string, error) {
	return func() (string, error) {
		candidates := []struct{ source, value string }{
			{"--backend-url", override},
			{BackendURLEnv, os.Getenv(BackendURLEnv)},
			{LegacyBackendURLEnv, os.Getenv(LegacyBackendURLEnv)},
			{"backend_url", fallback},
		}
		for _, c := range candidates {
			url := strings.TrimSpace(c.value)
			if url == "" {
				continue
			}
			if !hasHTTPScheme(url) {
				return "", apierrors.NewConfigError(c.source, "must start with http:// or https://")
			}
			return strings.TrimRight(url, "/"), nil
		}
		return "", apierrors.ErrNoBackendURL
	}
}

func hasHTTPScheme(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

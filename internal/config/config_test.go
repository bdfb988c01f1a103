package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apierrors "github.com/diogo/detectchat/internal/errors"
)

// testDir isolates the environment and returns the default config directory
func testDir(t *testing.T) string {
	t.Helper()
	return filepath.Join(isolate(t), ".detectchat")
}

// isolate points HOME at a temp dir and clears variables that leak from the host
func isolate(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv(BackendURLEnv, "")
	t.Setenv(LegacyBackendURLEnv, "")
	t.Chdir(tmpDir)
	return tmpDir
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.BackendURL != "" {
		t.Errorf("Expected empty BackendURL, got '%s'", cfg.BackendURL)
	}
	if cfg.TimeoutSeconds != 0 {
		t.Errorf("Expected no timeout by default, got %d", cfg.TimeoutSeconds)
	}
	if cfg.OrderedReplies {
		t.Error("Replies should be in arrival order by default")
	}
	if cfg.SaveHistory {
		t.Error("History should be off by default")
	}
	if cfg.Markdown.Style != "dark" {
		t.Errorf("Expected markdown style 'dark', got '%s'", cfg.Markdown.Style)
	}
}

func TestConfig_Timeout(t *testing.T) {
	cfg := Config{TimeoutSeconds: 15}
	if cfg.Timeout() != 15*time.Second {
		t.Errorf("Timeout() = %v", cfg.Timeout())
	}
	if (Config{}).Timeout() != 0 {
		t.Error("zero TimeoutSeconds should mean no timeout")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", DefaultConfig(), false},
		{"http url", Config{BackendURL: "http://localhost:8080"}, false},
		{"https url", Config{BackendURL: "https://detect.example.com"}, false},
		{"bad scheme", Config{BackendURL: "localhost:8080"}, true},
		{"negative timeout", Config{TimeoutSeconds: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !apierrors.IsConfigError(err) {
				t.Errorf("expected a config error, got %T", err)
			}
		})
	}
}

func TestPathIn(t *testing.T) {
	tmpDir := isolate(t)

	dir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() returned error: %v", err)
	}
	want := filepath.Join(tmpDir, ".detectchat", "config.json")
	if got := PathIn(dir); got != want {
		t.Errorf("PathIn() = %s, want %s", got, want)
	}
}

func TestEnsureConfigDir(t *testing.T) {
	isolate(t)

	dir, err := EnsureConfigDir()
	if err != nil {
		t.Fatalf("EnsureConfigDir() returned error: %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("Directory does not exist: %v", err)
	}
	if !info.IsDir() {
		t.Error("Path is not a directory")
	}
}

func TestLoadConfig_FileNotExists(t *testing.T) {
	dir := testDir(t)

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig() returned error: %v", err)
	}
	if cfg.Markdown.Style != DefaultConfig().Markdown.Style {
		t.Error("expected defaults when no config file exists")
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	dir := testDir(t)

	cfg := DefaultConfig()
	cfg.BackendURL = "http://localhost:8080"
	cfg.TimeoutSeconds = 30
	cfg.OrderedReplies = true

	if err := SaveConfig(dir, cfg); err != nil {
		t.Fatalf("SaveConfig() returned error: %v", err)
	}

	loaded, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig() returned error: %v", err)
	}

	if loaded.BackendURL != "http://localhost:8080" {
		t.Errorf("BackendURL = %s", loaded.BackendURL)
	}
	if loaded.TimeoutSeconds != 30 {
		t.Errorf("TimeoutSeconds = %d", loaded.TimeoutSeconds)
	}
	if !loaded.OrderedReplies {
		t.Error("OrderedReplies should round-trip")
	}
}

func TestSaveConfig_FilePermissions(t *testing.T) {
	dir := testDir(t)

	if err := SaveConfig(dir, DefaultConfig()); err != nil {
		t.Fatalf("SaveConfig() returned error: %v", err)
	}

	path := PathIn(dir)
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("config file mode = %o, want 600", info.Mode().Perm())
	}
}

func TestSaveConfig_RejectsInvalid(t *testing.T) {
	dir := testDir(t)

	err := SaveConfig(dir, Config{TimeoutSeconds: -5})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	dir := testDir(t)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(dir)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if cfg.Markdown.Style != "dark" {
		t.Error("defaults should be returned on parse error")
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := testDir(t)

	cfg := DefaultConfig()
	cfg.BackendURL = "http://from-file:8080"
	if err := SaveConfig(dir, cfg); err != nil {
		t.Fatal(err)
	}

	t.Setenv(BackendURLEnv, "http://from-env:9090")
	t.Setenv("DETECTCHAT_TIMEOUT_SECONDS", "12")
	t.Setenv("DETECTCHAT_ORDERED_REPLIES", "true")

	loaded, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig() returned error: %v", err)
	}
	// The backend URL stays the file value; the environment wins at call time
	if loaded.BackendURL != "http://from-file:8080" {
		t.Errorf("BackendURL = %s, want file value", loaded.BackendURL)
	}
	if got, _ := BackendURLResolver("", loaded.BackendURL)(); got != "http://from-env:9090" {
		t.Errorf("resolved backend = %s, want env value", got)
	}
	if loaded.TimeoutSeconds != 12 {
		t.Errorf("TimeoutSeconds = %d, want 12", loaded.TimeoutSeconds)
	}
	if !loaded.OrderedReplies {
		t.Error("OrderedReplies should come from env")
	}
}

func TestLoadDotEnv(t *testing.T) {
	tmpDir := isolate(t)
	t.Setenv("DETECTCHAT_DOTENV_PROBE", "")
	_ = os.Unsetenv("DETECTCHAT_DOTENV_PROBE")

	envFile := filepath.Join(tmpDir, ".env")
	if err := os.WriteFile(envFile, []byte("DETECTCHAT_DOTENV_PROBE=loaded\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := LoadDotEnv(); err != nil {
		t.Fatalf("LoadDotEnv() returned error: %v", err)
	}
	if got := os.Getenv("DETECTCHAT_DOTENV_PROBE"); got != "loaded" {
		t.Errorf("DETECTCHAT_DOTENV_PROBE = %q, want loaded", got)
	}
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	isolate(t)

	if err := LoadDotEnv("does-not-exist.env"); err != nil {
		t.Errorf("missing file should be skipped, got %v", err)
	}
}

func TestBackendURLResolver(t *testing.T) {
	isolate(t)

	resolve := BackendURLResolver("", "http://fallback:1/")
	got, err := resolve()
	if err != nil {
		t.Fatalf("resolve() error: %v", err)
	}
	if got != "http://fallback:1" {
		t.Errorf("resolve() = %s, want trailing slash trimmed fallback", got)
	}

	// The environment is read on every call
	t.Setenv(LegacyBackendURLEnv, "http://legacy:2")
	if got, _ := resolve(); got != "http://legacy:2" {
		t.Errorf("resolve() = %s, want legacy env", got)
	}

	t.Setenv(BackendURLEnv, "http://primary:3")
	if got, _ := resolve(); got != "http://primary:3" {
		t.Errorf("resolve() = %s, want primary env", got)
	}

	override := BackendURLResolver("http://flag:4", "http://fallback:1")
	if got, _ := override(); got != "http://flag:4" {
		t.Errorf("override resolve() = %s", got)
	}
}

func TestBackendURLResolver_NotConfigured(t *testing.T) {
	isolate(t)

	_, err := BackendURLResolver("", "")()
	if !errors.Is(err, apierrors.ErrNoBackendURL) {
		t.Errorf("expected ErrNoBackendURL, got %v", err)
	}
}

func TestConfig_JSONTags(t *testing.T) {
	data, err := json.Marshal(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"timeout_seconds", "ordered_replies", "save_history", "markdown"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing JSON key %q", key)
		}
	}
}

func TestLoadConfigFile_IgnoresEnvironment(t *testing.T) {
	dir := testDir(t)

	cfg := DefaultConfig()
	cfg.TimeoutSeconds = 3
	if err := SaveConfig(dir, cfg); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DETECTCHAT_TIMEOUT_SECONDS", "99")

	fileOnly, err := LoadConfigFile(dir)
	if err != nil {
		t.Fatalf("LoadConfigFile() returned error: %v", err)
	}
	if fileOnly.TimeoutSeconds != 3 {
		t.Errorf("TimeoutSeconds = %d, want the file value 3", fileOnly.TimeoutSeconds)
	}
}

func TestBackendURLResolver_RequiresScheme(t *testing.T) {
	for _, name := range []string{BackendURLEnv, LegacyBackendURLEnv} {
		t.Run(name, func(t *testing.T) {
			dir := testDir(t)
			t.Setenv(name, "localhost:8080")

			// Loading still works; the bad value only fails resolution
			cfg, err := LoadConfig(dir)
			if err != nil {
				t.Fatalf("LoadConfig() returned error: %v", err)
			}

			_, err = BackendURLResolver("", cfg.BackendURL)()
			if !apierrors.IsConfigError(err) {
				t.Fatalf("expected a config error, got %v", err)
			}
			if !strings.Contains(err.Error(), name) {
				t.Errorf("error %q should name %s", err, name)
			}
		})
	}

	isolate(t)
	if _, err := BackendURLResolver("localhost:1", "")(); !apierrors.IsConfigError(err) {
		t.Errorf("flag value without scheme should be rejected, got %v", err)
	}
}

func TestLoadConfig_CustomDir(t *testing.T) {
	home := testDir(t)
	dir := filepath.Join(t.TempDir(), "custom")

	cfg := DefaultConfig()
	cfg.OrderedReplies = true
	if err := SaveConfig(dir, cfg); err != nil {
		t.Fatalf("SaveConfig() returned error: %v", err)
	}

	if _, err := os.Stat(PathIn(dir)); err != nil {
		t.Fatalf("config not written to %s: %v", dir, err)
	}
	if fileExists(PathIn(home)) {
		t.Error("saving to a custom dir must not touch the home config")
	}

	loaded, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig() returned error: %v", err)
	}
	if !loaded.OrderedReplies {
		t.Error("OrderedReplies should come from the custom dir")
	}

	fromHome, err := LoadConfig(home)
	if err != nil {
		t.Fatal(err)
	}
	if fromHome.OrderedReplies {
		t.Error("home config should still have the defaults")
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

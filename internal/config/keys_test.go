package config

import (
	"errors"
	"testing"
)

func TestSetValue(t *testing.T) {
	tests := []struct {
		key   string
		value string
		check func(Config) bool
	}{
		{"backend_url", "http://localhost:8080/", func(c Config) bool { return c.BackendURL == "http://localhost:8080" }},
		{"timeout_seconds", "20", func(c Config) bool { return c.TimeoutSeconds == 20 }},
		{"ordered_replies", "true", func(c Config) bool { return c.OrderedReplies }},
		{"verbose", "1", func(c Config) bool { return c.Verbose }},
		{"save_history", "true", func(c Config) bool { return c.SaveHistory }},
		{"copy_to_clipboard", "true", func(c Config) bool { return c.CopyToClipboard }},
		{"tui_theme", "nord", func(c Config) bool { return c.TUITheme == "nord" }},
		{"log_file", "/tmp/x.log", func(c Config) bool { return c.LogFile == "/tmp/x.log" }},
		{"telemetry", "true", func(c Config) bool { return c.Telemetry }},
		{"markdown.style", "light", func(c Config) bool { return c.Markdown.Style == "light" }},
		{"markdown.enable_emoji", "false", func(c Config) bool { return !c.Markdown.EnableEmoji }},
		{"markdown.preserve_newlines", "false", func(c Config) bool { return !c.Markdown.PreserveNewLines }},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			cfg := DefaultConfig()
			if err := SetValue(&cfg, tt.key, tt.value); err != nil {
				t.Fatalf("SetValue() error: %v", err)
			}
			if !tt.check(cfg) {
				t.Errorf("SetValue(%s, %s) did not apply", tt.key, tt.value)
			}
		})
	}
}

func TestSetValue_Invalid(t *testing.T) {
	cfg := DefaultConfig()

	if err := SetValue(&cfg, "timeout_seconds", "soon"); err == nil {
		t.Error("expected error for non-integer timeout")
	}
	if err := SetValue(&cfg, "verbose", "maybe"); err == nil {
		t.Error("expected error for non-boolean verbose")
	}
	if err := SetValue(&cfg, "nope", "x"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("expected ErrUnknownKey, got %v", err)
	}
}

func TestGetValue_AllKeys(t *testing.T) {
	cfg := DefaultConfig()
	for _, key := range Keys() {
		if _, err := GetValue(cfg, key); err != nil {
			t.Errorf("GetValue(%s) error: %v", key, err)
		}
	}

	if _, err := GetValue(cfg, "nope"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("expected ErrUnknownKey, got %v", err)
	}
}

func TestGetValue_RoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	if err := SetValue(&cfg, "timeout_seconds", "7"); err != nil {
		t.Fatal(err)
	}
	got, _ := GetValue(cfg, "timeout_seconds")
	if got != "7" {
		t.Errorf("GetValue(timeout_seconds) = %s, want 7", got)
	}
}

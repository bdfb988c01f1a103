package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownKey is returned for keys Get and Set do not know
var ErrUnknownKey = errors.New("unknown config key")

// Keys returns the settable config keys in display order
func Keys() []string {
	return []string{
		"backend_url",
		"timeout_seconds",
		"ordered_replies",
		"verbose",
		"save_history",
		"copy_to_clipboard",
		"tui_theme",
		"log_file",
		"telemetry",
		"markdown.style",
		"markdown.enable_emoji",
		"markdown.preserve_newlines",
	}
}

// GetValue returns the string form of a config key
func GetValue(cfg Config, key string) (string, error) {
	switch key {
	case "backend_url":
		return cfg.BackendURL, nil
	case "timeout_seconds":
		return strconv.Itoa(cfg.TimeoutSeconds), nil
	case "ordered_replies":
		return strconv.FormatBool(cfg.OrderedReplies), nil
	case "verbose":
		return strconv.FormatBool(cfg.Verbose), nil
	case "save_history":
		return strconv.FormatBool(cfg.SaveHistory), nil
	case "copy_to_clipboard":
		return strconv.FormatBool(cfg.CopyToClipboard), nil
	case "tui_theme":
		return cfg.TUITheme, nil
	case "log_file":
		return cfg.LogFile, nil
	case "telemetry":
		return strconv.FormatBool(cfg.Telemetry), nil
	case "markdown.style":
		return cfg.Markdown.Style, nil
	case "markdown.enable_emoji":
		return strconv.FormatBool(cfg.Markdown.EnableEmoji), nil
	case "markdown.preserve_newlines":
		return strconv.FormatBool(cfg.Markdown.PreserveNewLines), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
}

// SetValue parses value and stores it under key
func SetValue(cfg *Config, key, value string) error {
	value = strings.TrimSpace(value)

	parseBool := func(dst *bool) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for %s: %q", key, value)
		}
		*dst = b
		return nil
	}

	switch key {
	case "backend_url":
		cfg.BackendURL = strings.TrimRight(value, "/")
	case "timeout_seconds":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer for %s: %q", key, value)
		}
		cfg.TimeoutSeconds = n
	case "ordered_replies":
		return parseBool(&cfg.OrderedReplies)
	case "verbose":
		return parseBool(&cfg.Verbose)
	case "save_history":
		return parseBool(&cfg.SaveHistory)
	case "copy_to_clipboard":
		return parseBool(&cfg.CopyToClipboard)
	case "tui_theme":
		cfg.TUITheme = value
	case "log_file":
		cfg.LogFile = value
	case "telemetry":
		return parseBool(&cfg.Telemetry)
	case "markdown.style":
		cfg.Markdown.Style = value
	case "markdown.enable_emoji":
		return parseBool(&cfg.Markdown.EnableEmoji)
	case "markdown.preserve_newlines":
		return parseBool(&cfg.Markdown.PreserveNewLines)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return nil
}

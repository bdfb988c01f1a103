package render

import (
	"os"

	"github.com/diogo/detectchat/internal/config"
)

// OptionsFromConfig builds render options from the markdown section of the config.
// GLAMOUR_STYLE, when set, overrides the style.
func OptionsFromConfig(md config.MarkdownConfig, width int) Options {
	opts := DefaultOptions()

	if md.Style != "" {
		opts = opts.WithStyle(md.Style)
	}
	opts.EnableEmoji = md.EnableEmoji
	opts.PreserveNewLines = md.PreserveNewLines

	if style := os.Getenv("GLAMOUR_STYLE"); style != "" {
		opts = opts.WithStyle(style)
	}

	if width > 0 {
		opts = opts.WithWidth(width)
	}

	return opts
}

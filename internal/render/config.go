package render

import (
	"os"

	"github.com/diogo/chatdrawer/internal/config"
)

// OptionsFromConfig maps the markdown section of the user configuration onto
// render options. Empty values keep the defaults.
func OptionsFromConfig(md config.MarkdownConfig) Options {
	opts := DefaultOptions()

	if md.Renderer != "" {
		opts.Renderer = Renderer(md.Renderer)
	}
	if md.Style != "" {
		opts.Style = md.Style
	}
	if md.Theme != "" {
		opts.Theme = md.Theme
	}
	if md.Width > 0 {
		opts.Width = md.Width
	}
	// These booleans always overwrite defaults since they have explicit defaults in config
	opts.EnableEmoji = md.EnableEmoji
	opts.PreserveNewLines = md.PreserveNewLines

	// Environment variable takes highest precedence for style
	if style := os.Getenv("GLAMOUR_STYLE"); style != "" {
		opts.Style = style
	}

	return opts
}

// LoadOptionsFromConfig loads render options from user configuration.
// A config file that cannot be read yields the defaults.
func LoadOptionsFromConfig() Options {
	cfg, err := config.LoadConfig()
	if err != nil {
		cfg = config.DefaultConfig()
	}
	return OptionsFromConfig(cfg.Markdown)
}

// LoadOptionsFromConfigWithWidth loads options from config with a specific width.
func LoadOptionsFromConfigWithWidth(width int) Options {
	opts := LoadOptionsFromConfig()
	opts.Width = width
	return opts
}

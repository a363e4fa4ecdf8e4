// Package render provides markdown rendering utilities for terminal output.
package render

// Renderer selects how assistant content is turned into terminal output
type Renderer string

const (
	// RendererNative walks the parsed document and styles each node kind
	RendererNative Renderer = "native"
	// RendererGlamour hands the raw text to glamour
	RendererGlamour Renderer = "glamour"
	// RendererPlain returns the content unchanged
	RendererPlain Renderer = "plain"
)

// Options configures the markdown renderer behavior.
type Options struct {
	// Renderer picks the rendering backend (default: native)
	Renderer Renderer

	// Width defines the maximum output width (default: 80)
	Width int

	// Style is the glamour style name or path to a JSON style file
	Style string

	// Theme is the palette used by the native renderer
	Theme string

	// CodeStyle is the chroma style for fenced code in the native renderer
	CodeStyle string

	// EnableEmoji converts :emoji: to unicode characters (glamour only)
	EnableEmoji bool

	// PreserveNewLines preserves original line breaks (glamour only)
	PreserveNewLines bool
}

// DefaultOptions returns the default configuration.
func DefaultOptions() Options {
	return Options{
		Renderer:         RendererNative,
		Width:            80,
		Style:            "dark",
		Theme:            "tokyonight",
		CodeStyle:        "monokai",
		EnableEmoji:      true,
		PreserveNewLines: true,
	}
}

// WithRenderer returns Options with the specified backend.
func (o Options) WithRenderer(r Renderer) Options {
	o.Renderer = r
	return o
}

// WithWidth returns Options with the specified width.
func (o Options) WithWidth(width int) Options {
	o.Width = width
	return o
}

// WithStyle returns Options with the specified glamour style.
func (o Options) WithStyle(style string) Options {
	o.Style = style
	return o
}

// WithTheme returns Options with the specified native palette.
func (o Options) WithTheme(theme string) Options {
	o.Theme = theme
	return o
}

// WithEmoji returns Options with emoji support enabled/disabled.
func (o Options) WithEmoji(enabled bool) Options {
	o.EnableEmoji = enabled
	return o
}

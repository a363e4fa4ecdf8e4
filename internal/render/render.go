package render

import (
	"strings"

	"github.com/diogo/chatdrawer/internal/markdown"
)

// Markdown renders assistant content for terminal display using the
// backend selected in opts.
func Markdown(content string, opts Options) (string, error) {
	switch opts.Renderer {
	case RendererPlain:
		return content, nil
	case RendererGlamour:
		return Glamour(content, opts)
	default:
		return Native(markdown.Parse(content), opts), nil
	}
}

// MarkdownWithWidth is a convenience function for rendering with specific width.
// Uses default options with the specified width.
func MarkdownWithWidth(content string, width int) (string, error) {
	return Markdown(content, DefaultOptions().WithWidth(width))
}

// Glamour renders content with a pooled glamour renderer.
func Glamour(content string, opts Options) (string, error) {
	key := keyOf(opts)
	renderer, err := renderers.acquire(key)
	if err != nil {
		return "", err
	}
	defer renderers.release(key, renderer)

	out, err := renderer.Render(content)
	if err != nil {
		return "", err
	}
	return strings.Trim(out, "\n"), nil
}

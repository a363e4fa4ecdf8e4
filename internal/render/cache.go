package render

import (
	"sync"

	"github.com/charmbracelet/glamour"
)

// glamourKey holds the Options fields that change glamour output.
// Renderer, Theme and CodeStyle only matter to the native backend.
type glamourKey struct {
	style    string
	width    int
	emoji    bool
	newlines bool
}

func keyOf(opts Options) glamourKey {
	style := opts.Style
	if style == "" {
		style = DefaultOptions().Style
	}
	return glamourKey{
		style:    style,
		width:    opts.Width,
		emoji:    opts.EnableEmoji,
		newlines: opts.PreserveNewLines,
	}
}

// glamourPools keeps a sync.Pool of TermRenderers per key. A TermRenderer
// must not render from two goroutines at once.
type glamourPools struct {
	mu    sync.Mutex
	pools map[glamourKey]*sync.Pool
}

var renderers = &glamourPools{pools: make(map[glamourKey]*sync.Pool)}

func (g *glamourPools) pool(k glamourKey) *sync.Pool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if p, ok := g.pools[k]; ok {
		return p
	}
	p := &sync.Pool{
		New: func() any {
			r, err := newTermRenderer(k)
			if err != nil {
				return nil
			}
			return r
		},
	}
	g.pools[k] = p
	return p
}

// acquire takes a renderer for k. When construction fails inside the pool
// it is retried here so the caller sees the error.
func (g *glamourPools) acquire(k glamourKey) (*glamour.TermRenderer, error) {
	if r, ok := g.pool(k).Get().(*glamour.TermRenderer); ok {
		return r, nil
	}
	return newTermRenderer(k)
}

func (g *glamourPools) release(k glamourKey, r *glamour.TermRenderer) {
	if r != nil {
		g.pool(k).Put(r)
	}
}

func newTermRenderer(k glamourKey) (*glamour.TermRenderer, error) {
	opts := []glamour.TermRendererOption{
		glamour.WithStylePath(k.style),
		glamour.WithWordWrap(k.width),
	}
	if k.emoji {
		opts = append(opts, glamour.WithEmoji())
	}
	if k.newlines {
		opts = append(opts, glamour.WithPreservedNewLines())
	}
	return glamour.NewTermRenderer(opts...)
}

// ResetGlamour drops every pooled glamour renderer
func ResetGlamour() {
	renderers.mu.Lock()
	renderers.pools = make(map[glamourKey]*sync.Pool)
	renderers.mu.Unlock()
}

// GlamourPools reports how many option sets currently have a renderer pool
func GlamourPools() int {
	renderers.mu.Lock()
	defer renderers.mu.Unlock()
	return len(renderers.pools)
}

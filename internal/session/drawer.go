package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/diogo/chatdrawer/internal/api"
	"github.com/diogo/chatdrawer/internal/chat"
	"github.com/diogo/chatdrawer/internal/models"
	"github.com/diogo/chatdrawer/internal/suggestions"
)

// Drawer scopes a conversation to the lifetime of the chat surface. Each
// open gets a fresh store and controller; closing discards them.
type Drawer struct {
	transport api.Transport

	mu          sync.Mutex
	pageContext string
	session     *Controller
}

// NewDrawer creates a closed drawer that sends requests through transport
func NewDrawer(transport api.Transport) *Drawer {
	return &Drawer{
		transport:   transport,
		pageContext: models.ContextDashboard,
	}
}

// SetContext records which part of the host application is visible. It only
// affects the suggestions offered.
func (d *Drawer) SetContext(label string) {
	d.mu.Lock()
	d.pageContext = label
	s := d.session
	d.mu.Unlock()

	if s != nil {
		s.Store().SetPageContext(label)
	}
}

// Context returns the current page context
func (d *Drawer) Context() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pageContext
}

// Suggestions returns the prompt hints for the current page context
func (d *Drawer) Suggestions() []suggestions.Suggestion {
	return suggestions.For(d.Context())
}

// Mount opens the surface without submitting anything and returns its
// session. Mounting an open drawer returns the existing session.
func (d *Drawer) Mount() *Controller {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		store := chat.NewStore()
		store.SetPageContext(d.pageContext)
		d.session = NewController(store, d.transport)
		log.Debug().
			Str("component", "drawer").
			Str("conversation_id", store.ID()).
			Str("page_context", d.pageContext).
			Msg("drawer opened")
	}
	return d.session
}

// Queue mounts the surface and queues text for one automatic submit
func (d *Drawer) Queue(text string) *Controller {
	s := d.Mount()
	s.Store().SetPendingPrompt(text)
	return s
}

// Open mounts the surface and sends the queued prompt, if any. It blocks
// until that request has finished.
func (d *Drawer) Open(ctx context.Context) error {
	return d.Mount().AutoSubmit(ctx)
}

// OpenWithPrompt opens the surface and sends text exactly once
func (d *Drawer) OpenWithPrompt(ctx context.Context, text string) error {
	return d.Queue(text).AutoSubmit(ctx)
}

// Close cancels any request in flight and discards the conversation
func (d *Drawer) Close() {
	d.mu.Lock()
	s := d.session
	d.session = nil
	d.mu.Unlock()

	if s == nil {
		return
	}
	s.Close()
	log.Debug().
		Str("component", "drawer").
		Str("conversation_id", s.Store().ID()).
		Msg("drawer closed")
}

// IsOpen reports whether the surface is open
func (d *Drawer) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.session != nil
}

// Session returns the open session, or nil when the drawer is closed
func (d *Drawer) Session() *Controller {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.session
}

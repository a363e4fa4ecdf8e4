// Package session drives one chat request at a time from submit to the end
// of the response stream.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/diogo/chatdrawer/internal/api"
	"github.com/diogo/chatdrawer/internal/chat"
	apierrors "github.com/diogo/chatdrawer/internal/errors"
	"github.com/diogo/chatdrawer/internal/models"
	"github.com/diogo/chatdrawer/internal/stream"
)

// State is the request state of a controller
type State int

const (
	Idle State = iota
	Submitting
	Streaming
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Streaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// Controller runs requests against a transport and records them in a store.
// At most one request is in flight. Store observers are invoked while the
// controller lock is held and must not call back into the controller.
type Controller struct {
	store     *chat.Store
	transport api.Transport

	mu     sync.Mutex
	state  State
	gen    uint64
	cancel context.CancelFunc
	closed bool
	finish models.Finish
}

// NewController creates a controller for the given conversation
func NewController(store *chat.Store, transport api.Transport) *Controller {
	return &Controller{
		store:     store,
		transport: transport,
		state:     Idle,
	}
}

// Store returns the conversation this controller writes to
func (c *Controller) Store() *chat.Store {
	return c.store
}

// State returns the current request state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastFinish returns the finish metadata reported for the last request
func (c *Controller) LastFinish() models.Finish {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finish
}

// Submit sends text as the next user turn and blocks until the response
// has been fully applied to the store.
//
// Misuse (blank text, a request already in flight, a closed controller) is
// rejected with an InvalidState error before anything is appended. A
// transport or decode failure is recorded as an errored assistant turn and
// also returned. A cancelled request returns nil.
func (c *Controller) Submit(ctx context.Context, text string) error {
	c.mu.Lock()
	gen, reqCtx, err := c.begin(ctx, text)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return c.run(reqCtx, gen)
}

// AutoSubmit takes the pending prompt from the store and submits it. The
// prompt is consumed at most once; with no prompt queued it does nothing.
func (c *Controller) AutoSubmit(ctx context.Context) error {
	c.mu.Lock()
	if err := c.checkIdle("auto submit"); err != nil {
		c.mu.Unlock()
		return err
	}
	text, ok := c.store.TakePendingPrompt()
	if !ok {
		c.mu.Unlock()
		return nil
	}
	gen, reqCtx, err := c.begin(ctx, text)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return c.run(reqCtx, gen)
}

// Cancel stops the request in flight. The partial assistant turn is kept as
// complete and nothing that arrives afterwards is applied. It reports whether
// a request was cancelled.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop()
}

// Close cancels any request in flight; later submits fail
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.stop()
}

// IsClosed returns whether the controller is closed
func (c *Controller) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Controller) logger() *zerolog.Logger {
	l := log.With().
		Str("component", "session").
		Str("conversation_id", c.store.ID()).
		Logger()
	return &l
}

// checkIdle must be called with c.mu held
func (c *Controller) checkIdle(op string) error {
	if c.closed {
		return apierrors.NewInvalidStateError(op, apierrors.ErrClosed)
	}
	if c.state != Idle {
		return apierrors.NewInvalidStateError(op, apierrors.ErrBusy)
	}
	return nil
}

// begin must be called with c.mu held
func (c *Controller) begin(ctx context.Context, text string) (uint64, context.Context, error) {
	if err := c.checkIdle("submit"); err != nil {
		return 0, nil, err
	}
	if strings.TrimSpace(text) == "" {
		return 0, nil, apierrors.NewInvalidStateError("submit", apierrors.ErrEmptyPrompt)
	}

	if _, err := c.store.AppendUserTurn(text); err != nil {
		return 0, nil, err
	}
	if _, err := c.store.BeginAssistantTurn(); err != nil {
		c.store.FailTurn(err)
		return 0, nil, err
	}

	c.gen++
	reqCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.finish = models.Finish{}
	c.setState(Submitting)
	return c.gen, reqCtx, nil
}

// stop must be called with c.mu held
func (c *Controller) stop() bool {
	if c.state == Idle {
		return false
	}

	c.gen++
	c.cancel()
	c.cancel = nil
	c.store.CompleteTurn()
	c.logger().Info().Msg("request cancelled")
	c.setState(Idle)
	return true
}

// setState must be called with c.mu held
func (c *Controller) setState(s State) {
	if c.state == s {
		return
	}
	c.logger().Debug().
		Str("from", c.state.String()).
		Str("state", s.String()).
		Msg("state transition")
	c.state = s
}

// apply runs fn if gen is still the current request. It reports false once
// the request has been cancelled or finished.
func (c *Controller) apply(gen uint64, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen || c.state == Idle {
		return false
	}
	fn()
	return true
}

// end finishes the current request if gen is still current
func (c *Controller) end(gen uint64, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen || c.state == Idle {
		return
	}
	fn()
	c.cancel()
	c.cancel = nil
	c.setState(Idle)
}

func (c *Controller) run(ctx context.Context, gen uint64) error {
	history := api.History(c.store.Snapshot().Turns)

	resp, err := c.transport.Send(ctx, history)
	if err != nil {
		return c.fail(ctx, gen, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if !c.apply(gen, func() { c.setState(Streaming) }) {
		return nil
	}

	deltas := 0
	for ev, err := range stream.NewDecoder(resp.Body, resp.Protocol).All() {
		if err != nil {
			return c.fail(ctx, gen, err)
		}

		switch ev.Kind {
		case stream.KindDelta:
			if !c.apply(gen, func() { c.store.AppendDelta(ev.Delta.Text) }) {
				return nil
			}
			deltas++
		case stream.KindFinish:
			c.apply(gen, func() { c.finish = ev.Finish })
		case stream.KindError:
			return c.fail(ctx, gen, apierrors.NewTransportError("", "server reported: "+ev.Message, nil))
		}
	}

	c.end(gen, c.store.CompleteTurn)
	c.logger().Debug().Int("deltas", deltas).Msg("response complete")
	return nil
}

// fail records err as the outcome of request gen. Failures caused by
// cancellation end the turn as complete instead. An expired deadline is a
// failure.
func (c *Controller) fail(ctx context.Context, gen uint64, err error) error {
	ctxErr := ctx.Err()
	if apierrors.IsCancelled(ctxErr) || (ctxErr == nil && apierrors.IsCancelled(err)) {
		c.end(gen, c.store.CompleteTurn)
		return nil
	}

	switch {
	case errors.Is(ctxErr, context.DeadlineExceeded) && !apierrors.IsTransportError(err):
		err = apierrors.NewTransportError("", "request timed out", ctxErr)
	case !apierrors.IsTransportError(err) && !apierrors.IsDecodeError(err):
		err = apierrors.NewTransportError("", "read response stream", err)
	}

	c.logger().Warn().Err(err).Msg("request failed")
	c.end(gen, func() { c.store.FailTurn(err) })
	return err
}

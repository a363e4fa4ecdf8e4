package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	http "github.com/bogdanfinn/fhttp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	apierrors "github.com/diogo/chatdrawer/internal/errors"
	"github.com/diogo/chatdrawer/internal/models"
	"github.com/diogo/chatdrawer/internal/stream"
)

// maxErrorBody limits how much of a failed response is kept for diagnostics
const maxErrorBody = 4096

type requestBody struct {
	Messages []models.HistoryMessage `json:"messages"`
	Model    string                  `json:"model,omitempty"`
}

// Send posts the conversation to the endpoint and returns the open stream.
// Failures are returned as *errors.TransportError. The client timeout only
// covers the wait for response headers. There are no retries.
func (c *Client) Send(ctx context.Context, history []models.HistoryMessage) (*Response, error) {
	if len(history) == 0 {
		return nil, apierrors.NewTransportError(c.endpoint, "history cannot be empty", nil)
	}
	if c.IsClosed() {
		return nil, apierrors.NewTransportError(c.endpoint, "client is closed", nil)
	}

	payload, err := buildPayload(history, c.GetModel())
	if err != nil {
		return nil, errors.Wrap(err, "failed to build payload")
	}

	reqCtx, cancel := context.WithCancel(ctx)
	var timer *time.Timer
	if c.timeout > 0 {
		timer = time.AfterFunc(c.timeout, cancel)
	}
	// stopTimer reports whether the header timeout already fired
	stopTimer := func() bool {
		if timer == nil {
			return false
		}
		return !timer.Stop()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		stopTimer()
		cancel()
		return nil, errors.Wrap(err, "failed to create request")
	}

	for key, value := range models.DefaultHeaders() {
		req.Header.Set(key, value)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	log.Debug().
		Str("component", "transport").
		Str("endpoint", c.endpoint).
		Int("messages", len(history)).
		Msg("sending chat request")

	resp, err := c.httpClient.Do(req)
	timedOut := stopTimer()
	if err != nil {
		cancel()
		switch ctxErr := ctx.Err(); {
		case errors.Is(ctxErr, context.DeadlineExceeded):
			return nil, apierrors.NewTransportError(c.endpoint, "request timed out", ctxErr)
		case ctxErr != nil:
			return nil, apierrors.NewTransportError(c.endpoint, "request cancelled", ctxErr)
		case timedOut:
			return nil, apierrors.NewTransportError(c.endpoint,
				fmt.Sprintf("no response within %s", c.timeout), context.DeadlineExceeded)
		}
		return nil, apierrors.NewTransportError(c.endpoint, "send chat request", err)
	}
	if resp == nil {
		cancel()
		return nil, apierrors.NewTransportError(c.endpoint, "no response", nil)
	}
	if timedOut {
		cancel()
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
		return nil, apierrors.NewTransportError(c.endpoint,
			fmt.Sprintf("no response within %s", c.timeout), context.DeadlineExceeded)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errorBody := readErrorBody(resp.Body)
		cancel()
		return nil, apierrors.NewStatusError(resp.StatusCode, c.endpoint, errorBody)
	}

	if resp.Body == nil || resp.Body == http.NoBody {
		cancel()
		return nil, apierrors.NewTransportError(c.endpoint, "response has no body", nil)
	}

	protocol := DetectProtocol(resp.Header, c.protocol)

	log.Debug().
		Str("component", "transport").
		Int("status", resp.StatusCode).
		Str("protocol", protocol.String()).
		Msg("response stream opened")

	return &Response{
		Body:       watchBody(reqCtx, cancel, resp.Body),
		Protocol:   protocol,
		StatusCode: resp.StatusCode,
	}, nil
}

// buildPayload creates the JSON request body
func buildPayload(history []models.HistoryMessage, model string) ([]byte, error) {
	return json.Marshal(requestBody{Messages: history, Model: model})
}

func readErrorBody(body io.ReadCloser) string {
	if body == nil {
		return ""
	}
	defer func() { _ = body.Close() }()

	data, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
	return string(data)
}

// DetectProtocol picks the framing of a response. A configured protocol
// other than auto always wins.
func DetectProtocol(header http.Header, configured stream.Protocol) stream.Protocol {
	if configured != "" && configured != stream.ProtocolAuto {
		return configured
	}

	if strings.EqualFold(strings.TrimSpace(header.Get(models.HeaderDataStream)), "v1") {
		return stream.ProtocolData
	}
	if header.Get(models.HeaderUIStream) != "" {
		return stream.ProtocolSSE
	}

	contentType := strings.ToLower(header.Get("Content-Type"))
	switch {
	case strings.HasPrefix(contentType, models.ContentTypeSSE):
		return stream.ProtocolSSE
	case strings.HasPrefix(contentType, "text/plain"):
		return stream.ProtocolText
	default:
		return stream.ProtocolData
	}
}

// cancelBody closes the wrapped body as soon as its context is done, so a
// reader blocked on the network returns immediately. Close releases the
// request context.
type cancelBody struct {
	io.ReadCloser
	stop   func() bool
	cancel context.CancelFunc
}

func watchBody(ctx context.Context, cancel context.CancelFunc, body io.ReadCloser) io.ReadCloser {
	stop := context.AfterFunc(ctx, func() {
		_ = body.Close()
	})
	return &cancelBody{ReadCloser: body, stop: stop, cancel: cancel}
}

func (b *cancelBody) Close() error {
	b.stop()
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

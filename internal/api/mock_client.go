package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/diogo/chatdrawer/internal/models"
	"github.com/diogo/chatdrawer/internal/stream"
)

// MockTransport is a scripted Transport for tests.
// Chunks are written to the response body in order. With Hold set the body
// stays open afterwards until End is called or the request context is done,
// and Feed can push more chunks. Feed must not be mixed with Chunks.
type MockTransport struct {
	Chunks   []string
	Protocol stream.Protocol
	Err      error
	Hold     bool

	mu     sync.Mutex
	calls  [][]models.HistoryMessage
	writer *io.PipeWriter
}

// Ensure MockTransport implements Transport
var _ Transport = (*MockTransport)(nil)

// NewMockTransport creates a MockTransport that streams the given deltas in
// the data stream framing and then closes the body
func NewMockTransport(deltas ...string) *MockTransport {
	return &MockTransport{
		Chunks:   DataStreamChunks(deltas...),
		Protocol: stream.ProtocolData,
	}
}

// NewMockTransportWithError creates a MockTransport whose Send fails
func NewMockTransportWithError(err error) *MockTransport {
	return &MockTransport{Err: err}
}

// Send implements Transport
func (m *MockTransport) Send(ctx context.Context, history []models.HistoryMessage) (*Response, error) {
	m.mu.Lock()
	recorded := make([]models.HistoryMessage, len(history))
	copy(recorded, history)
	m.calls = append(m.calls, recorded)

	if m.Err != nil {
		err := m.Err
		m.mu.Unlock()
		return nil, err
	}

	pr, pw := io.Pipe()
	m.writer = pw
	chunks := append([]string(nil), m.Chunks...)
	hold := m.Hold
	protocol := m.Protocol
	m.mu.Unlock()

	context.AfterFunc(ctx, func() {
		_ = pr.CloseWithError(ctx.Err())
	})

	go func() {
		for _, chunk := range chunks {
			if _, err := pw.Write([]byte(chunk)); err != nil {
				return
			}
		}
		if !hold {
			_ = pw.Close()
		}
	}()

	if protocol == "" {
		protocol = stream.ProtocolData
	}
	return &Response{Body: pr, Protocol: protocol, StatusCode: 200}, nil
}

// Feed writes one more chunk to the open response body. It returns once the
// reader has consumed the chunk.
func (m *MockTransport) Feed(chunk string) error {
	m.mu.Lock()
	w := m.writer
	m.mu.Unlock()
	if w == nil {
		return errors.New("no open stream")
	}
	_, err := w.Write([]byte(chunk))
	return err
}

// FeedDelta writes one text delta in the data stream framing
func (m *MockTransport) FeedDelta(text string) error {
	return m.Feed(DataStreamChunks(text)[0])
}

// End closes the open response body
func (m *MockTransport) End() error {
	m.mu.Lock()
	w := m.writer
	m.mu.Unlock()
	if w == nil {
		return errors.New("no open stream")
	}
	return w.Close()
}

// Calls returns the history of every Send call
func (m *MockTransport) Calls() [][]models.HistoryMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]models.HistoryMessage(nil), m.calls...)
}

// CallCount returns the number of Send calls
func (m *MockTransport) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// DataStreamChunks encodes each delta as one data stream text part
func DataStreamChunks(deltas ...string) []string {
	chunks := make([]string, 0, len(deltas))
	for _, d := range deltas {
		encoded, _ := json.Marshal(d)
		chunks = append(chunks, "0:"+string(encoded)+"\n")
	}
	return chunks
}

package stream

import (
	"bufio"
	"io"
	"iter"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	apierrors "github.com/diogo/chatdrawer/internal/errors"
	"github.com/diogo/chatdrawer/internal/models"
)

// Kind identifies the type of a decoded Event
type Kind int

const (
	// KindDelta carries a fragment of assistant text
	KindDelta Kind = iota + 1
	// KindFinish reports that the model finished the message
	KindFinish
	// KindError carries an error reported by the server inside the stream
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindDelta:
		return "delta"
	case KindFinish:
		return "finish"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one decoded protocol unit
type Event struct {
	Kind    Kind
	Delta   models.Delta
	Finish  models.Finish
	Message string
}

const textChunkSize = 4096

// Decoder turns a response body into a finite sequence of events.
// A Decoder is not safe for concurrent use and cannot be restarted.
type Decoder struct {
	r        *bufio.Reader
	protocol Protocol
	line     int
	offset   int64
	err      error

	scratch []byte
	pending []byte
}

// NewDecoder creates a decoder for the given framing. ProtocolAuto is
// decoded as the data stream.
func NewDecoder(r io.Reader, protocol Protocol) *Decoder {
	if protocol == "" || protocol == ProtocolAuto {
		protocol = ProtocolData
	}
	return &Decoder{
		r:        bufio.NewReader(r),
		protocol: protocol,
	}
}

// Protocol returns the framing this decoder reads
func (d *Decoder) Protocol() Protocol {
	return d.protocol
}

// Next returns the next event. It returns io.EOF once the stream has ended.
// After any error, every later call returns the same error.
func (d *Decoder) Next() (Event, error) {
	if d.err != nil {
		return Event{}, d.err
	}

	var ev Event
	var err error
	switch d.protocol {
	case ProtocolSSE:
		ev, err = d.nextSSE()
	case ProtocolText:
		ev, err = d.nextText()
	default:
		ev, err = d.nextData()
	}
	if err != nil {
		d.err = err
	}
	return ev, err
}

// All returns a lazy iterator over the remaining events. Iteration stops at
// the end of the stream, or after yielding the first error.
func (d *Decoder) All() iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for {
			ev, err := d.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(ev, err) || err != nil {
				return
			}
		}
	}
}

// readLine returns the next line without its terminator. A final line that
// is not newline terminated is returned before io.EOF.
func (d *Decoder) readLine() (string, error) {
	line, err := d.r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", errors.Wrap(err, "read stream")
	}
	if line == "" {
		return "", io.EOF
	}
	d.line++
	d.offset += int64(len(line))
	return strings.TrimRight(line, "\r\n"), nil
}

func (d *Decoder) decodeError(message string, cause error) error {
	return apierrors.NewDecodeError(d.line, d.offset, message, cause)
}

func (d *Decoder) nextData() (Event, error) {
	for {
		line, err := d.readLine()
		if err != nil {
			return Event{}, err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		sep := strings.IndexByte(line, ':')
		switch {
		case sep < 0:
			return Event{}, d.decodeError("missing part separator", nil)
		case sep != 1:
			return Event{}, d.decodeError("invalid part code "+strconv.Quote(line[:sep]), nil)
		}

		code, payload := line[0], line[2:]
		if !gjson.Valid(payload) {
			return Event{}, d.decodeError("invalid JSON in part "+strconv.Quote(string(code)), nil)
		}
		value := gjson.Parse(payload)

		switch code {
		case codeText:
			if value.Type != gjson.String {
				return Event{}, d.decodeError("text part is not a string", nil)
			}
			return Event{
				Kind:  KindDelta,
				Delta: models.Delta{Role: models.RoleAssistant, Text: value.String()},
			}, nil
		case codeError:
			return Event{Kind: KindError, Message: value.String()}, nil
		case codeFinishMsg:
			return Event{Kind: KindFinish, Finish: models.Finish{
				Reason:           value.Get("finishReason").String(),
				PromptTokens:     int(value.Get("usage.promptTokens").Int()),
				CompletionTokens: int(value.Get("usage.completionTokens").Int()),
			}}, nil
		case codeFinishStep, codeStartStep:
			continue
		default:
			if ignoredCodes[code] {
				continue
			}
			return Event{}, d.decodeError("unknown part code "+strconv.Quote(string(code)), nil)
		}
	}
}

// readSSEEvent returns the joined data lines of the next event
func (d *Decoder) readSSEEvent() (string, error) {
	var data []string
	for {
		line, err := d.readLine()
		if err == io.EOF {
			if len(data) > 0 {
				return strings.Join(data, "\n"), nil
			}
			return "", io.EOF
		}
		if err != nil {
			return "", err
		}

		if line == "" {
			if len(data) > 0 {
				return strings.Join(data, "\n"), nil
			}
			continue
		}

		// event:, id:, retry: and comments carry nothing we use
		if value, ok := strings.CutPrefix(line, "data:"); ok {
			data = append(data, strings.TrimPrefix(value, " "))
		}
	}
}

func (d *Decoder) nextSSE() (Event, error) {
	for {
		data, err := d.readSSEEvent()
		if err != nil {
			return Event{}, err
		}
		if strings.TrimSpace(data) == "[DONE]" {
			return Event{}, io.EOF
		}
		if !gjson.Valid(data) {
			return Event{}, d.decodeError("invalid JSON in event", nil)
		}

		part := gjson.Parse(data)
		switch part.Get("type").String() {
		case "text-delta":
			text := part.Get("delta")
			if !text.Exists() {
				text = part.Get("textDelta")
			}
			return Event{
				Kind:  KindDelta,
				Delta: models.Delta{Role: models.RoleAssistant, Text: text.String()},
			}, nil
		case "text":
			return Event{
				Kind:  KindDelta,
				Delta: models.Delta{Role: models.RoleAssistant, Text: part.Get("text").String()},
			}, nil
		case "error":
			msg := part.Get("errorText").String()
			if msg == "" {
				msg = part.Get("error").String()
			}
			return Event{Kind: KindError, Message: msg}, nil
		case "finish":
			return Event{Kind: KindFinish, Finish: models.Finish{
				Reason:           part.Get("finishReason").String(),
				PromptTokens:     int(part.Get("usage.inputTokens").Int()),
				CompletionTokens: int(part.Get("usage.outputTokens").Int()),
			}}, nil
		default:
			continue
		}
	}
}

func (d *Decoder) nextText() (Event, error) {
	if d.scratch == nil {
		d.scratch = make([]byte, textChunkSize)
	}
	for {
		n, err := d.r.Read(d.scratch)
		if n > 0 {
			d.pending = append(d.pending, d.scratch[:n]...)
			if cut := completeRunes(d.pending); cut > 0 {
				return d.flushText(cut), nil
			}
		}
		if err == io.EOF {
			if len(d.pending) > 0 {
				return d.flushText(len(d.pending)), nil
			}
			return Event{}, io.EOF
		}
		if err != nil {
			return Event{}, errors.Wrap(err, "read stream")
		}
	}
}

func (d *Decoder) flushText(n int) Event {
	text := string(d.pending[:n])
	d.pending = append(d.pending[:0:0], d.pending[n:]...)
	d.offset += int64(n)
	return Event{
		Kind:  KindDelta,
		Delta: models.Delta{Role: models.RoleAssistant, Text: text},
	}
}

// completeRunes returns the length of the longest prefix of b that does not
// end inside a multi-byte UTF-8 sequence
func completeRunes(b []byte) int {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if utf8.FullRune(b[i:]) {
				return len(b)
			}
			return i
		}
	}
	return len(b)
}

package stream

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/diogo/chatdrawer/internal/errors"
)

const dataStreamBody = `f:{"messageId":"msg-1"}
0:"Evan"
0:" Park's"
0:" manager is Jane Smith."
e:{"finishReason":"stop","usage":{"promptTokens":12,"completionTokens":9},"isContinued":false}
d:{"finishReason":"stop","usage":{"promptTokens":12,"completionTokens":9}}
`

const sseBody = "data: {\"type\":\"start\",\"messageId\":\"msg-1\"}\n\n" +
	"data: {\"type\":\"text-start\",\"id\":\"t1\"}\n\n" +
	"data: {\"type\":\"text-delta\",\"id\":\"t1\",\"delta\":\"Evan\"}\n\n" +
	"data: {\"type\":\"text-delta\",\"id\":\"t1\",\"delta\":\" Park's\"}\n\n" +
	": keep-alive\n\n" +
	"data: {\"type\":\"text-delta\",\"id\":\"t1\",\"delta\":\" manager is Jane Smith.\"}\n\n" +
	"data: {\"type\":\"finish\",\"finishReason\":\"stop\",\"usage\":{\"inputTokens\":12,\"outputTokens\":9}}\n\n" +
	"data: [DONE]\n\n"

type result struct {
	text   string
	deltas []string
	events []Event
	err    error
}

func collect(r io.Reader, protocol Protocol) result {
	var res result
	for ev, err := range NewDecoder(r, protocol).All() {
		if err != nil {
			res.err = err
			break
		}
		res.events = append(res.events, ev)
		if ev.Kind == KindDelta {
			res.deltas = append(res.deltas, ev.Delta.Text)
			res.text += ev.Delta.Text
		}
	}
	return res
}

func TestDecoderDataStream(t *testing.T) {
	res := collect(strings.NewReader(dataStreamBody), ProtocolData)

	require.NoError(t, res.err)
	assert.Equal(t, []string{"Evan", " Park's", " manager is Jane Smith."}, res.deltas)
	assert.Equal(t, "Evan Park's manager is Jane Smith.", res.text)

	last := res.events[len(res.events)-1]
	assert.Equal(t, KindFinish, last.Kind)
	assert.Equal(t, "stop", last.Finish.Reason)
	assert.Equal(t, 12, last.Finish.PromptTokens)
	assert.Equal(t, 9, last.Finish.CompletionTokens)
}

func TestDecoderChunkBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		protocol Protocol
	}{
		{name: "data", body: dataStreamBody, protocol: ProtocolData},
		{name: "sse", body: sseBody, protocol: ProtocolSSE},
		{name: "data multibyte", body: "0:\"café ☕\"\n0:\" \U0001F4CA ok\"\n", protocol: ProtocolData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := collect(strings.NewReader(tt.body), tt.protocol)
			require.NoError(t, want.err)

			for i := 0; i <= len(tt.body); i++ {
				r := io.MultiReader(strings.NewReader(tt.body[:i]), strings.NewReader(tt.body[i:]))
				got := collect(r, tt.protocol)
				require.NoError(t, got.err, "split at %d", i)
				assert.Equal(t, want.deltas, got.deltas, "split at %d", i)
			}

			got := collect(iotest.OneByteReader(strings.NewReader(tt.body)), tt.protocol)
			require.NoError(t, got.err)
			assert.Equal(t, want.deltas, got.deltas)
		})
	}
}

func TestDecoderDataStreamFraming(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		deltas []string
	}{
		{
			name:   "crlf",
			body:   "0:\"a\"\r\n0:\"b\"\r\n",
			deltas: []string{"a", "b"},
		},
		{
			name:   "unterminated final line",
			body:   "0:\"a\"\n0:\"b\"",
			deltas: []string{"a", "b"},
		},
		{
			name:   "blank lines",
			body:   "\n0:\"a\"\n\n\n0:\"b\"\n",
			deltas: []string{"a", "b"},
		},
		{
			name:   "ignored parts",
			body:   "2:[{\"k\":1}]\n8:[{\"a\":1}]\n0:\"a\"\ng:\"thinking\"\n9:{\"toolCallId\":\"1\"}\n0:\"b\"\n",
			deltas: []string{"a", "b"},
		},
		{
			name:   "escaped text",
			body:   "0:\"line\\nnext \\\"quoted\\\"\"\n",
			deltas: []string{"line\nnext \"quoted\""},
		},
		{
			name: "empty body",
			body: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := collect(strings.NewReader(tt.body), ProtocolData)
			require.NoError(t, res.err)
			assert.Equal(t, tt.deltas, res.deltas)
		})
	}
}

func TestDecoderDataStreamMalformed(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		deltas []string
		line   int
	}{
		{name: "unknown code", body: "0:\"kept\"\nz:\"x\"\n0:\"lost\"\n", deltas: []string{"kept"}, line: 2},
		{name: "missing separator", body: "0:\"kept\"\nnot a frame\n", deltas: []string{"kept"}, line: 2},
		{name: "long code", body: "01:\"x\"\n", line: 1},
		{name: "invalid json", body: "0:\"a\"\n0:\"unterminated\n0:\"b\"\n", deltas: []string{"a"}, line: 2},
		{name: "text not a string", body: "0:42\n", line: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := collect(strings.NewReader(tt.body), ProtocolData)
			require.Error(t, res.err)
			assert.True(t, apierrors.IsDecodeError(res.err))
			assert.Equal(t, tt.deltas, res.deltas)

			var de *apierrors.DecodeError
			require.True(t, errors.As(res.err, &de))
			assert.Equal(t, tt.line, de.Line)
		})
	}
}

func TestDecoderErrorIsSticky(t *testing.T) {
	d := NewDecoder(strings.NewReader("0:\"a\"\nz:1\n0:\"b\"\n"), ProtocolData)

	ev, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, "a", ev.Delta.Text)

	_, err = d.Next()
	require.True(t, apierrors.IsDecodeError(err))

	_, again := d.Next()
	assert.Equal(t, err, again)
}

func TestDecoderServerErrorPart(t *testing.T) {
	res := collect(strings.NewReader("0:\"partial\"\n3:\"rate limited\"\n"), ProtocolData)

	require.NoError(t, res.err)
	require.Len(t, res.events, 2)
	assert.Equal(t, KindError, res.events[1].Kind)
	assert.Equal(t, "rate limited", res.events[1].Message)
}

func TestDecoderSSE(t *testing.T) {
	res := collect(strings.NewReader(sseBody+"data: {\"type\":\"text-delta\",\"delta\":\"after done\"}\n\n"), ProtocolSSE)

	require.NoError(t, res.err)
	assert.Equal(t, "Evan Park's manager is Jane Smith.", res.text)

	last := res.events[len(res.events)-1]
	assert.Equal(t, KindFinish, last.Kind)
	assert.Equal(t, 12, last.Finish.PromptTokens)
	assert.Equal(t, 9, last.Finish.CompletionTokens)
}

func TestDecoderSSEVariants(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		text    string
		errText string
	}{
		{
			name: "legacy text parts",
			body: "data: {\"type\":\"text\",\"text\":\"a\"}\n\ndata: {\"type\":\"text-delta\",\"textDelta\":\"b\"}\n\n",
			text: "ab",
		},
		{
			name: "no trailing blank line",
			body: "data: {\"type\":\"text-delta\",\"delta\":\"a\"}",
			text: "a",
		},
		{
			name: "crlf and event field",
			body: "event: message\r\ndata: {\"type\":\"text-delta\",\"delta\":\"a\"}\r\n\r\n",
			text: "a",
		},
		{
			name:    "error event",
			body:    "data: {\"type\":\"text-delta\",\"delta\":\"a\"}\n\ndata: {\"type\":\"error\",\"errorText\":\"overloaded\"}\n\n",
			text:    "a",
			errText: "overloaded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := collect(strings.NewReader(tt.body), ProtocolSSE)
			require.NoError(t, res.err)
			assert.Equal(t, tt.text, res.text)
			if tt.errText != "" {
				last := res.events[len(res.events)-1]
				assert.Equal(t, KindError, last.Kind)
				assert.Equal(t, tt.errText, last.Message)
			}
		})
	}
}

func TestDecoderSSEMalformed(t *testing.T) {
	res := collect(strings.NewReader("data: {\"type\":\"text-delta\",\"delta\":\"a\"}\n\ndata: {nope\n\n"), ProtocolSSE)

	assert.True(t, apierrors.IsDecodeError(res.err))
	assert.Equal(t, "a", res.text)
}

func TestDecoderText(t *testing.T) {
	body := "Plain café text ☕ with \U0001F4DD emoji"

	for i := 0; i <= len(body); i++ {
		r := io.MultiReader(strings.NewReader(body[:i]), strings.NewReader(body[i:]))
		res := collect(r, ProtocolText)
		require.NoError(t, res.err)
		assert.Equal(t, body, res.text, "split at %d", i)
		for _, d := range res.deltas {
			assert.True(t, utf8.ValidString(d), "split at %d produced %q", i, d)
		}
	}
}

func TestDecoderReadError(t *testing.T) {
	boom := errors.New("connection reset")
	r := io.MultiReader(strings.NewReader("0:\"a\"\n"), iotest.ErrReader(boom))

	res := collect(r, ProtocolData)
	assert.Equal(t, []string{"a"}, res.deltas)
	assert.ErrorIs(t, res.err, boom)
	assert.False(t, apierrors.IsDecodeError(res.err))
}

func TestDecoderAllStopsEarly(t *testing.T) {
	d := NewDecoder(strings.NewReader(dataStreamBody), ProtocolData)

	count := 0
	for range d.All() {
		count++
		break
	}
	assert.Equal(t, 1, count)

	ev, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, " Park's", ev.Delta.Text)
}

func TestNewDecoderAutoIsData(t *testing.T) {
	assert.Equal(t, ProtocolData, NewDecoder(strings.NewReader(""), ProtocolAuto).Protocol())
	assert.Equal(t, ProtocolData, NewDecoder(strings.NewReader(""), "").Protocol())
	assert.Equal(t, ProtocolSSE, NewDecoder(strings.NewReader(""), ProtocolSSE).Protocol())
}

func TestParseProtocol(t *testing.T) {
	tests := []struct {
		in      string
		want    Protocol
		wantErr bool
	}{
		{in: "", want: ProtocolAuto},
		{in: "auto", want: ProtocolAuto},
		{in: "DATA", want: ProtocolData},
		{in: " sse ", want: ProtocolSSE},
		{in: "text", want: ProtocolText},
		{in: "ndjson", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseProtocol(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Package stream decodes the incremental response body of the chat endpoint
// into text deltas.
package stream

import (
	"fmt"
	"strings"
)

// Protocol identifies the framing used by a response body
type Protocol string

const (
	// ProtocolAuto lets the transport pick the framing from response headers
	ProtocolAuto Protocol = "auto"
	// ProtocolData is the line oriented "<code>:<json>" data stream
	ProtocolData Protocol = "data"
	// ProtocolSSE is a server-sent events stream of JSON parts
	ProtocolSSE Protocol = "sse"
	// ProtocolText is an unframed stream of UTF-8 text
	ProtocolText Protocol = "text"
)

// String returns the protocol name
func (p Protocol) String() string {
	return string(p)
}

// ParseProtocol parses a protocol name. The empty string means auto.
func ParseProtocol(s string) (Protocol, error) {
	switch Protocol(strings.ToLower(strings.TrimSpace(s))) {
	case "", ProtocolAuto:
		return ProtocolAuto, nil
	case ProtocolData:
		return ProtocolData, nil
	case ProtocolSSE:
		return ProtocolSSE, nil
	case ProtocolText:
		return ProtocolText, nil
	default:
		return "", fmt.Errorf("unknown stream protocol %q (want auto, data, sse or text)", s)
	}
}

// Data stream part codes
const (
	codeText        = '0'
	codeData        = '2'
	codeError       = '3'
	codeAnnotation  = '8'
	codeToolCall    = '9'
	codeToolResult  = 'a'
	codeToolStart   = 'b'
	codeToolDelta   = 'c'
	codeFinishMsg   = 'd'
	codeFinishStep  = 'e'
	codeStartStep   = 'f'
	codeReasoning   = 'g'
	codeSource      = 'h'
	codeRedacted    = 'i'
	codeReasoningSg = 'j'
	codeFile        = 'k'
)

// ignoredCodes are valid parts that carry no assistant text
var ignoredCodes = map[byte]bool{
	codeData:        true,
	codeAnnotation:  true,
	codeToolCall:    true,
	codeToolResult:  true,
	codeToolStart:   true,
	codeToolDelta:   true,
	codeReasoning:   true,
	codeSource:      true,
	codeRedacted:    true,
	codeReasoningSg: true,
	codeFile:        true,
}

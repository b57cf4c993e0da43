// internal/decoder/decoder.go

// Package decoder splits the inbound byte stream into text lines and
// classifies each line into the tagged protocol event set.
package decoder

import (
	"bytes"
	"strings"

	"calc-bridge/internal/model"
)

// Protocol line tags emitted by the device, matched case-sensitively and in
// this fixed order.
const (
	tagExpression     = "EXPR:"
	tagResult         = "RESULT:"
	tagTransportError = "Serial Error:"
)

// Decoder accumulates raw bytes and yields newline-terminated lines.
// The only state carried between calls is the unterminated residue.
type Decoder struct {
	buf []byte
}

// New creates a new decoder
func New() *Decoder {
	return &Decoder{}
}

// Feed appends data to the pending buffer and returns all completed lines.
// The newline terminator and a trailing carriage return are stripped,
// invalid UTF-8 sequences are dropped rather than failing the line, and
// lines that are empty after whitespace stripping are discarded. Bytes
// after the last terminator stay buffered for the next call.
func (d *Decoder) Feed(data []byte) []string {
	d.buf = append(d.buf, data...)

	var lines []string
	for {
		idx := bytes.IndexByte(d.buf, '\n')
		if idx < 0 {
			break
		}
		raw := d.buf[:idx]
		d.buf = d.buf[idx+1:]

		line := strings.TrimSpace(strings.ToValidUTF8(string(raw), ""))
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}

	if len(d.buf) == 0 {
		d.buf = nil
	}
	return lines
}

// Pending returns the number of buffered unterminated bytes
func (d *Decoder) Pending() int {
	return len(d.buf)
}

// Classify maps a decoded line onto the protocol event set. Tag prefixes
// are stripped for expression and result lines; error and unrecognized
// lines are forwarded in full, so new device tags pass through verbatim.
func Classify(line string) model.Event {
	switch {
	case strings.HasPrefix(line, tagExpression):
		return model.NewExpressionEvent(line[len(tagExpression):])
	case strings.HasPrefix(line, tagResult):
		return model.NewResultEvent(line[len(tagResult):])
	case strings.HasPrefix(line, tagTransportError):
		return model.NewTransportErrorEvent(line)
	default:
		return model.NewUnrecognizedEvent(line)
	}
}

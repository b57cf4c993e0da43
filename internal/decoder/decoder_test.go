// internal/decoder/decoder_test.go
package decoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calc-bridge/internal/model"
)

func TestFeed_SplitsCompleteLines(t *testing.T) {
	d := New()

	lines := d.Feed([]byte("EXPR:1+2\nRESULT:3\n"))
	require.Equal(t, []string{"EXPR:1+2", "RESULT:3"}, lines)
	assert.Equal(t, 0, d.Pending())
}

func TestFeed_BuffersPartialLine(t *testing.T) {
	d := New()

	lines := d.Feed([]byte("EXP"))
	require.Empty(t, lines)
	assert.Equal(t, 3, d.Pending())

	lines = d.Feed([]byte("R:42\n"))
	require.Equal(t, []string{"EXPR:42"}, lines)
	assert.Equal(t, 0, d.Pending())
}

func TestFeed_StripsCarriageReturn(t *testing.T) {
	d := New()

	lines := d.Feed([]byte("RESULT:7\r\n"))
	require.Equal(t, []string{"RESULT:7"}, lines)
}

func TestFeed_DiscardsBlankLines(t *testing.T) {
	d := New()

	lines := d.Feed([]byte("\n \t\r\n\nEXPR:1\n"))
	require.Equal(t, []string{"EXPR:1"}, lines)
}

func TestFeed_DropsInvalidUTF8(t *testing.T) {
	d := New()

	// One invalid byte embedded in an otherwise well-formed line must not
	// drop the line.
	lines := d.Feed([]byte{'E', 'X', 'P', 'R', ':', '1', 0xFF, '+', '2', '\n'})
	require.Equal(t, []string{"EXPR:1+2"}, lines)
}

func TestFeed_ManyLinesAcrossReads(t *testing.T) {
	d := New()

	var lines []string
	lines = append(lines, d.Feed([]byte("EXPR:1\nEXPR:1+"))...)
	lines = append(lines, d.Feed([]byte("1\nRES"))...)
	lines = append(lines, d.Feed([]byte("ULT:10\n"))...)

	require.Equal(t, []string{"EXPR:1", "EXPR:1+1", "RESULT:10"}, lines)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantType model.EventType
		wantText string
	}{
		{"expression", "EXPR:1+2", model.EventExpression, "1+2"},
		{"empty expression", "EXPR:", model.EventExpression, ""},
		{"result", "RESULT:3", model.EventResult, "3"},
		{"transport error keeps full line", "Serial Error: device gone", model.EventTransportError, "Serial Error: device gone"},
		{"unknown tag passes through", "DEBUG:stack ready", model.EventUnrecognized, "DEBUG:stack ready"},
		{"lowercase tag is not a match", "expr:1+2", model.EventUnrecognized, "expr:1+2"},
		{"plain text passes through", "hello", model.EventUnrecognized, "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := Classify(tt.line)
			assert.Equal(t, tt.wantType, event.Type)
			assert.Equal(t, tt.wantText, event.Text)
			assert.False(t, event.Timestamp.IsZero())
		})
	}
}

func TestFeedAndClassify_PreservesOrder(t *testing.T) {
	d := New()

	lines := d.Feed([]byte("EXPR:1+2\nRESULT:3\nDEBUG:done\n"))
	require.Len(t, lines, 3)

	events := make([]model.Event, 0, len(lines))
	for _, line := range lines {
		events = append(events, Classify(line))
	}

	require.Equal(t, model.EventExpression, events[0].Type)
	require.Equal(t, "1+2", events[0].Text)
	require.Equal(t, model.EventResult, events[1].Type)
	require.Equal(t, "3", events[1].Text)
	require.Equal(t, model.EventUnrecognized, events[2].Type)
}

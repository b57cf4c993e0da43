// internal/model/event.go
package model

import "time"

// EventType represents the classification of an inbound device line
type EventType string

const (
	// EventExpression is emitted when the device reports a newly composed expression
	EventExpression EventType = "EXPRESSION"
	// EventResult is emitted when the device reports a computed result
	EventResult EventType = "RESULT"
	// EventTransportError is emitted when a connection-level failure occurred.
	// Terminal for the current connection.
	EventTransportError EventType = "TRANSPORT_ERROR"
	// EventUnrecognized is emitted for any line not matching a known tag.
	// The line is forwarded verbatim so new device tags pass through.
	EventUnrecognized EventType = "UNRECOGNIZED"
)

// Event represents a decoded, classified unit of inbound information.
// Events are immutable once constructed; ownership transfers from the
// reader loop to the inbound queue to the consumer.
type Event struct {
	Type      EventType `json:"type"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExpressionEvent creates an expression event (tag prefix already stripped)
func NewExpressionEvent(text string) Event {
	return Event{Type: EventExpression, Text: text, Timestamp: time.Now()}
}

// NewResultEvent creates a result event (tag prefix already stripped)
func NewResultEvent(text string) Event {
	return Event{Type: EventResult, Text: text, Timestamp: time.Now()}
}

// NewTransportErrorEvent creates a transport error event carrying the full message
func NewTransportErrorEvent(message string) Event {
	return Event{Type: EventTransportError, Text: message, Timestamp: time.Now()}
}

// NewUnrecognizedEvent creates a pass-through event for an unknown line
func NewUnrecognizedEvent(line string) Event {
	return Event{Type: EventUnrecognized, Text: line, Timestamp: time.Now()}
}

// IsTerminal returns whether the event ends the current connection
func (e Event) IsTerminal() bool {
	return e.Type == EventTransportError
}

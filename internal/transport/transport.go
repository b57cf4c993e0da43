// internal/transport/transport.go
package transport

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned for operations on a connection that is not open
var ErrClosed = errors.New("connection not open")

// Connection represents a byte-stream link to the device
type Connection interface {
	// Connection lifecycle
	Open(ctx context.Context) error
	Close() error
	IsOpen() bool

	// Data communication. PollReadable never blocks the caller; it reports
	// whether ReadAvailable would return bytes (or a deferred read error)
	// immediately. ReadAvailable blocks at most the configured read timeout
	// and treats a timeout as zero bytes, not an error.
	PollReadable() bool
	ReadAvailable(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error

	// Endpoint returns the configured endpoint descriptor
	Endpoint() string
}

// Config represents connection configuration shared by all link types
type Config struct {
	// Endpoint is "host:port" for a network redirector or a device path
	// such as /dev/ttyUSB0 for a local serial link.
	Endpoint string
	// Rate is the baud rate of the serial link. Network connections carry
	// it for logging only; the redirector owns the physical line settings.
	Rate int
	// ReadTimeout bounds a single ReadAvailable call
	ReadTimeout time.Duration
}

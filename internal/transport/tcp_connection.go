// internal/transport/tcp_connection.go
package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TCPConnection implements Connection for serial-over-network redirectors
type TCPConnection struct {
	config Config
	conn   net.Conn
	logger *zap.Logger
	mutex  sync.Mutex
	isOpen bool

	pending    []byte
	pendingErr error
}

// NewTCPConnection creates a new TCP connection
func NewTCPConnection(config Config, logger *zap.Logger) Connection {
	return &TCPConnection{
		config: config,
		logger: logger.With(
			zap.String("transport", "tcp"),
			zap.String("endpoint", config.Endpoint),
			zap.String("conn_id", uuid.NewString()),
		),
	}
}

// Open opens the TCP connection
func (tc *TCPConnection) Open(ctx context.Context) error {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	if tc.isOpen {
		return nil
	}

	tc.logger.Info("Opening TCP connection",
		zap.Int("rate", tc.config.Rate),
	)

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	conn, err := dialer.DialContext(ctx, "tcp", tc.config.Endpoint)
	if err != nil {
		tc.logger.Error("Failed to open TCP connection", zap.Error(err))
		return fmt.Errorf("failed to connect to %s: %w", tc.config.Endpoint, err)
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.SetKeepAlive(true)
		tcpConn.SetKeepAlivePeriod(30 * time.Second)
	}

	tc.conn = conn
	tc.isOpen = true
	tc.pending = nil
	tc.pendingErr = nil

	tc.logger.Info("TCP connection opened successfully")
	return nil
}

// Close closes the TCP connection. Idempotent and safe to call from a
// different goroutine than the one performing reads.
func (tc *TCPConnection) Close() error {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	if !tc.isOpen || tc.conn == nil {
		return nil
	}

	if err := tc.conn.Close(); err != nil {
		tc.logger.Error("Failed to close TCP connection", zap.Error(err))
		tc.conn = nil
		tc.isOpen = false
		return fmt.Errorf("failed to close TCP connection: %w", err)
	}

	tc.conn = nil
	tc.isOpen = false

	tc.logger.Info("TCP connection closed")
	return nil
}

// IsOpen returns whether the connection is open
func (tc *TCPConnection) IsOpen() bool {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()
	return tc.isOpen && tc.conn != nil
}

// PollReadable performs a non-blocking check for available bytes. Bytes it
// pulls in are buffered for the next ReadAvailable; a read failure it
// observes is deferred the same way.
func (tc *TCPConnection) PollReadable() bool {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	if !tc.isOpen || tc.conn == nil {
		return false
	}
	if len(tc.pending) > 0 || tc.pendingErr != nil {
		return true
	}

	// An already-expired deadline turns Read into a non-blocking drain of
	// the socket buffer.
	if err := tc.conn.SetReadDeadline(time.Now()); err != nil {
		tc.pendingErr = err
		return true
	}
	buf := make([]byte, 4096)
	n, err := tc.conn.Read(buf)

	if n > 0 {
		tc.pending = append(tc.pending, buf[:n]...)
	}
	if err != nil {
		if netErr, ok := err.(net.Error); !ok || !netErr.Timeout() {
			tc.pendingErr = err
		}
	}

	return len(tc.pending) > 0 || tc.pendingErr != nil
}

// ReadAvailable reads whatever is currently available, blocking at most the
// configured read timeout. A timeout yields zero bytes and a nil error.
func (tc *TCPConnection) ReadAvailable(ctx context.Context) ([]byte, error) {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	if !tc.isOpen || tc.conn == nil {
		return nil, ErrClosed
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if len(tc.pending) > 0 {
		data := tc.pending
		tc.pending = nil
		return data, nil
	}
	if tc.pendingErr != nil {
		err := tc.pendingErr
		tc.pendingErr = nil
		return nil, fmt.Errorf("failed to read from TCP connection: %w", err)
	}

	if err := tc.conn.SetReadDeadline(time.Now().Add(tc.config.ReadTimeout)); err != nil {
		return nil, fmt.Errorf("failed to set read deadline: %w", err)
	}
	buf := make([]byte, 4096)
	n, err := tc.conn.Read(buf)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return nil, nil
		}
		tc.logger.Error("TCP read failed", zap.Error(err))
		return nil, fmt.Errorf("failed to read from TCP connection: %w", err)
	}

	data := make([]byte, n)
	copy(data, buf[:n])
	return data, nil
}

// Write writes data to the TCP connection
func (tc *TCPConnection) Write(ctx context.Context, data []byte) error {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	if !tc.isOpen || tc.conn == nil {
		return ErrClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := tc.conn.SetWriteDeadline(time.Now().Add(tc.config.ReadTimeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	n, err := tc.conn.Write(data)
	if err != nil {
		tc.logger.Error("TCP write failed", zap.Error(err))
		return fmt.Errorf("failed to write to TCP connection: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("incomplete write: wrote %d of %d bytes", n, len(data))
	}

	tc.logger.Debug("TCP write completed", zap.Int("bytes", len(data)))
	return nil
}

// Endpoint returns the configured host:port
func (tc *TCPConnection) Endpoint() string {
	return tc.config.Endpoint
}

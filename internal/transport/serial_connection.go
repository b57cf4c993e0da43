// internal/transport/serial_connection.go
package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.bug.st/serial"
	"go.uber.org/zap"
)

// SerialConnection implements Connection for local serial links
type SerialConnection struct {
	config Config
	port   serial.Port
	logger *zap.Logger
	mutex  sync.Mutex
	isOpen bool

	// pending holds bytes pulled in by a poll; pendingErr defers a read
	// failure observed during a poll until the next ReadAvailable.
	pending    []byte
	pendingErr error
}

// NewSerialConnection creates a new serial connection
func NewSerialConnection(config Config, logger *zap.Logger) Connection {
	return &SerialConnection{
		config: config,
		logger: logger.With(
			zap.String("transport", "serial"),
			zap.String("endpoint", config.Endpoint),
			zap.String("conn_id", uuid.NewString()),
		),
	}
}

// Open opens the serial port
func (sc *SerialConnection) Open(ctx context.Context) error {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	if sc.isOpen {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	sc.logger.Info("Opening serial port",
		zap.Int("baud_rate", sc.config.Rate),
	)

	mode := &serial.Mode{
		BaudRate: sc.config.Rate,
	}

	port, err := serial.Open(sc.config.Endpoint, mode)
	if err != nil {
		sc.logger.Error("Failed to open serial port", zap.Error(err))
		return fmt.Errorf("failed to open serial port %s: %w", sc.config.Endpoint, err)
	}

	if err := port.SetReadTimeout(sc.config.ReadTimeout); err != nil {
		port.Close()
		return fmt.Errorf("failed to set read timeout: %w", err)
	}

	sc.port = port
	sc.isOpen = true
	sc.pending = nil
	sc.pendingErr = nil

	sc.logger.Info("Serial port opened successfully")
	return nil
}

// Close closes the serial port. Idempotent and safe to call from a
// different goroutine than the one performing reads.
func (sc *SerialConnection) Close() error {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	if !sc.isOpen || sc.port == nil {
		return nil
	}

	if err := sc.port.Close(); err != nil {
		sc.logger.Error("Failed to close serial port", zap.Error(err))
		sc.port = nil
		sc.isOpen = false
		return fmt.Errorf("failed to close serial port: %w", err)
	}

	sc.port = nil
	sc.isOpen = false

	sc.logger.Info("Serial port closed")
	return nil
}

// IsOpen returns whether the connection is open
func (sc *SerialConnection) IsOpen() bool {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	return sc.isOpen && sc.port != nil
}

// PollReadable performs a non-blocking check for available bytes. Bytes it
// pulls in are buffered for the next ReadAvailable; a read failure it
// observes is deferred the same way, so the caller still learns about it
// through ReadAvailable.
func (sc *SerialConnection) PollReadable() bool {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	if !sc.isOpen || sc.port == nil {
		return false
	}
	if len(sc.pending) > 0 || sc.pendingErr != nil {
		return true
	}

	// A zero read timeout makes Read return immediately with whatever the
	// driver has buffered.
	if err := sc.port.SetReadTimeout(0); err != nil {
		sc.pendingErr = err
		return true
	}
	buf := make([]byte, 4096)
	n, err := sc.port.Read(buf)
	if restoreErr := sc.port.SetReadTimeout(sc.config.ReadTimeout); restoreErr != nil && err == nil {
		err = restoreErr
	}

	if n > 0 {
		sc.pending = append(sc.pending, buf[:n]...)
	}
	if err != nil {
		sc.pendingErr = err
	}

	return len(sc.pending) > 0 || sc.pendingErr != nil
}

// ReadAvailable reads whatever is currently available, blocking at most the
// configured read timeout. A timeout yields zero bytes and a nil error.
func (sc *SerialConnection) ReadAvailable(ctx context.Context) ([]byte, error) {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	if !sc.isOpen || sc.port == nil {
		return nil, ErrClosed
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if len(sc.pending) > 0 {
		data := sc.pending
		sc.pending = nil
		return data, nil
	}
	if sc.pendingErr != nil {
		err := sc.pendingErr
		sc.pendingErr = nil
		return nil, fmt.Errorf("failed to read from serial port: %w", err)
	}

	buf := make([]byte, 4096)
	n, err := sc.port.Read(buf)
	if err != nil {
		sc.logger.Error("Serial read failed", zap.Error(err))
		return nil, fmt.Errorf("failed to read from serial port: %w", err)
	}
	if n == 0 {
		// Read timeout elapsed with no data.
		return nil, nil
	}

	data := make([]byte, n)
	copy(data, buf[:n])
	return data, nil
}

// Write writes data to the serial port
func (sc *SerialConnection) Write(ctx context.Context, data []byte) error {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	if !sc.isOpen || sc.port == nil {
		return ErrClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	n, err := sc.port.Write(data)
	if err != nil {
		sc.logger.Error("Serial write failed", zap.Error(err))
		return fmt.Errorf("failed to write to serial port: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("incomplete write: wrote %d of %d bytes", n, len(data))
	}

	sc.logger.Debug("Serial write completed", zap.Int("bytes", len(data)))
	return nil
}

// Endpoint returns the configured device path
func (sc *SerialConnection) Endpoint() string {
	return sc.config.Endpoint
}

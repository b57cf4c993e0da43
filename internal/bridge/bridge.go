// internal/bridge/bridge.go

// Package bridge connects an interactive consumer to a remote line-oriented
// calculator device. It owns the transport connection, a single background
// reader goroutine, and the inbound event queue the consumer drains.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"calc-bridge/internal/config"
	"calc-bridge/internal/decoder"
	"calc-bridge/internal/model"
	"calc-bridge/internal/transport"
)

var (
	// ErrNotConnected is returned by SendToken when no open connection exists
	ErrNotConnected = errors.New("not connected to device")
	// ErrInvalidToken is returned by SendToken for a byte outside the
	// device's command alphabet
	ErrInvalidToken = errors.New("token outside command alphabet")
)

// TokenAlphabet is the fixed set of single-character commands the device
// understands. 'B' means backspace/cancel.
const TokenAlphabet = "01()+-*/=B"

// ReaderState represents the lifecycle state of the background reader loop
type ReaderState string

const (
	ReaderStarting ReaderState = "STARTING"
	ReaderRunning  ReaderState = "RUNNING"
	ReaderStopping ReaderState = "STOPPING"
	ReaderStopped  ReaderState = "STOPPED"
)

// Bridge orchestrates the transport connection, the reader loop, and the
// inbound queue. At most one reader goroutine is alive per Bridge, and a
// Bridge never reopens: reconnecting means constructing a new Bridge.
type Bridge struct {
	conn   transport.Connection
	dec    *decoder.Decoder
	queue  *eventQueue
	logger *zap.Logger
	cfg    config.DeviceConfig

	mutex     sync.Mutex
	connected bool
	state     ReaderState

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New opens the transport and starts the reader loop. An endpoint that
// cannot be reached does not fail construction: the Bridge comes up
// disconnected with exactly one transport error event queued, so the
// consumer learns about the failure through the same channel as everything
// else. Construction fails only for invalid configuration.
func New(cfg config.DeviceConfig, logger *zap.Logger) (*Bridge, error) {
	conn, err := transport.New(transport.Config{
		Endpoint:    cfg.Endpoint,
		Rate:        cfg.Rate,
		ReadTimeout: cfg.ReadTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("invalid device configuration: %w", err)
	}

	b := &Bridge{
		conn:   conn,
		dec:    decoder.New(),
		queue:  newEventQueue(),
		logger: logger.With(zap.String("component", "bridge")),
		cfg:    cfg,
		state:  ReaderStarting,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	if err := conn.Open(context.Background()); err != nil {
		b.logger.Error("Failed to open device connection", zap.Error(err))
		b.queue.Push(model.NewTransportErrorEvent(fmt.Sprintf("Serial Error: %v", err)))
		b.setState(ReaderStopped)
		close(b.done)
		return b, nil
	}

	b.setConnected(true)
	go b.readLoop()

	b.logger.Info("Bridge started",
		zap.String("endpoint", cfg.Endpoint),
		zap.Int("rate", cfg.Rate),
	)
	return b, nil
}

// SendToken writes a single command character to the device, with no
// terminator. Fails with ErrNotConnected when disconnected, without
// touching the transport.
func (b *Bridge) SendToken(token byte) error {
	if !strings.ContainsRune(TokenAlphabet, rune(token)) {
		return fmt.Errorf("%w: %q", ErrInvalidToken, token)
	}
	if !b.Connected() {
		return ErrNotConnected
	}

	if err := b.conn.Write(context.Background(), []byte{token}); err != nil {
		b.logger.Error("Token write failed",
			zap.String("token", string(token)),
			zap.Error(err),
		)
		return fmt.Errorf("failed to send token %q: %w", token, err)
	}

	b.logger.Debug("Token sent", zap.String("token", string(token)))
	return nil
}

// DrainEvents removes and returns all currently queued events in FIFO
// order. Non-blocking; intended to be called on a fixed polling cadence.
func (b *Bridge) DrainEvents() []model.Event {
	return b.queue.DrainAll()
}

// Shutdown stops the reader loop, closes the transport, and waits (bounded)
// for the reader goroutine to finish. Idempotent, safe concurrently with
// SendToken and DrainEvents, and safe when New never got a connection.
func (b *Bridge) Shutdown() {
	b.stopOnce.Do(func() {
		b.logger.Info("Bridge shutting down")

		close(b.stop)
		b.setConnected(false)
		if err := b.conn.Close(); err != nil {
			b.logger.Warn("Transport close failed during shutdown", zap.Error(err))
		}

		// The loop converges within one read timeout plus one idle sleep.
		waitBound := b.cfg.ReadTimeout + b.cfg.IdlePollInterval + 500*time.Millisecond
		select {
		case <-b.done:
			b.logger.Info("Reader loop stopped")
		case <-time.After(waitBound):
			b.logger.Warn("Reader loop did not stop within bound",
				zap.Duration("wait", waitBound),
			)
		}
	})
}

// Connected reports whether the bridge holds an open connection
func (b *Bridge) Connected() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.connected
}

// ReaderState returns the current state of the reader loop
func (b *Bridge) ReaderState() ReaderState {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.state
}

func (b *Bridge) setConnected(connected bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.connected = connected
}

func (b *Bridge) setState(state ReaderState) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.state = state
}

// readLoop polls the transport, decodes inbound bytes into events, and
// pushes them to the queue in decode order. A transport failure becomes a
// transport error event and ends the loop; errors never cross the goroutine
// boundary any other way.
func (b *Bridge) readLoop() {
	defer close(b.done)

	if !b.conn.IsOpen() {
		b.queue.Push(model.NewTransportErrorEvent("Serial Error: connection is not open"))
		b.setConnected(false)
		b.setState(ReaderStopped)
		return
	}

	b.setState(ReaderRunning)
	b.logger.Debug("Reader loop running")
	ctx := context.Background()

	for {
		select {
		case <-b.stop:
			b.setState(ReaderStopping)
			b.logger.Debug("Reader loop stop requested")
			b.setState(ReaderStopped)
			return
		default:
		}

		if !b.conn.PollReadable() {
			time.Sleep(b.cfg.IdlePollInterval)
			continue
		}

		data, err := b.conn.ReadAvailable(ctx)
		if err != nil {
			b.setState(ReaderStopping)
			select {
			case <-b.stop:
				// Read failed because Shutdown closed the transport out
				// from under us; not a device failure.
			default:
				b.logger.Error("Reader loop transport failure", zap.Error(err))
				b.queue.Push(model.NewTransportErrorEvent(fmt.Sprintf("Serial Error: %v", err)))
				b.setConnected(false)
				if closeErr := b.conn.Close(); closeErr != nil {
					b.logger.Warn("Transport close failed", zap.Error(closeErr))
				}
			}
			b.setState(ReaderStopped)
			return
		}

		for _, line := range b.dec.Feed(data) {
			event := decoder.Classify(line)
			b.logger.Debug("Event decoded",
				zap.String("type", string(event.Type)),
				zap.String("text", event.Text),
			)
			b.queue.Push(event)
		}
	}
}

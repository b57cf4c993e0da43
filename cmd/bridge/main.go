// cmd/bridge/main.go
package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"calc-bridge/internal/bridge"
	"calc-bridge/internal/config"
	"calc-bridge/internal/model"
	"calc-bridge/internal/utils"
)

// drainInterval is the consumer's polling cadence for inbound events
const drainInterval = 100 * time.Millisecond

// Application represents the main application
type Application struct {
	config *config.Config
	logger *zap.Logger
	bridge *bridge.Bridge
}

func main() {
	app, err := NewApplication()
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Run(); err != nil {
		app.logger.Fatal("Application failed", zap.Error(err))
	}
}

// NewApplication creates a new application instance
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	br, err := bridge.New(cfg.Device, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create bridge: %w", err)
	}

	logger.Info("Application initialized",
		zap.String("name", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("endpoint", cfg.Device.Endpoint),
	)

	return &Application{
		config: cfg,
		logger: logger,
		bridge: br,
	}, nil
}

// Run reads command tokens from stdin, polls the bridge for inbound events
// on a fixed cadence, and renders them until interrupted or until the
// device connection fails.
func (app *Application) Run() error {
	defer app.Shutdown()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	tokens := make(chan byte)
	go app.readTokens(tokens)

	fmt.Printf("Connected to %s. Tokens: %s (Ctrl-D to exit)\n",
		app.config.Device.Endpoint, bridge.TokenAlphabet)

	ticker := time.NewTicker(drainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-quit:
			app.logger.Info("Received shutdown signal")
			return nil

		case tok, ok := <-tokens:
			if !ok {
				return nil
			}
			if err := app.bridge.SendToken(tok); err != nil {
				if errors.Is(err, bridge.ErrInvalidToken) {
					fmt.Printf("Ignoring %q: not a device command\n", tok)
					continue
				}
				fmt.Printf("Write Error: %v\n", err)
			}

		case <-ticker.C:
			for _, event := range app.bridge.DrainEvents() {
				app.render(event)
				if event.IsTerminal() {
					app.logger.Warn("Device connection lost")
					return nil
				}
			}
		}
	}
}

// readTokens forwards single command characters from stdin
func (app *Application) readTokens(tokens chan<- byte) {
	defer close(tokens)

	reader := bufio.NewReader(os.Stdin)
	for {
		ch, err := reader.ReadByte()
		if err != nil {
			return
		}
		if ch == '\n' || ch == '\r' || ch == ' ' {
			continue
		}
		tokens <- ch
	}
}

// render writes one decoded event to the console
func (app *Application) render(event model.Event) {
	switch event.Type {
	case model.EventExpression:
		fmt.Println(event.Text)
	case model.EventResult:
		fmt.Println("Result => " + event.Text)
	case model.EventTransportError:
		fmt.Println(event.Text)
	default:
		fmt.Println(event.Text)
	}
}

// Shutdown stops the bridge and flushes logs
func (app *Application) Shutdown() {
	app.bridge.Shutdown()
	if err := utils.CloseLogger(app.logger); err != nil {
		// Sync to stderr can fail on some platforms; nothing left to do.
		_ = err
	}
}

// internal/transport/factory.go
package transport

import (
	"fmt"
	"net"
	"strings"

	"go.uber.org/zap"
)

// New creates a connection for the configured endpoint. An endpoint of the
// form "host:port" selects TCP (serial-over-network redirector); anything
// else is treated as a local serial device path.
func New(config Config, logger *zap.Logger) (Connection, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if config.Rate <= 0 {
		return nil, fmt.Errorf("invalid rate: %d", config.Rate)
	}

	if isNetworkEndpoint(config.Endpoint) {
		logger.Info("Creating TCP transport",
			zap.String("endpoint", config.Endpoint),
		)
		return NewTCPConnection(config, logger), nil
	}

	logger.Info("Creating serial transport",
		zap.String("endpoint", config.Endpoint),
		zap.Int("rate", config.Rate),
	)
	return NewSerialConnection(config, logger), nil
}

// isNetworkEndpoint reports whether the endpoint looks like host:port.
// Device paths ("/dev/ttyUSB0", "COM3") never parse as one.
func isNetworkEndpoint(endpoint string) bool {
	if strings.HasPrefix(endpoint, "/") || strings.HasPrefix(endpoint, "\\\\") {
		return false
	}
	host, port, err := net.SplitHostPort(endpoint)
	return err == nil && host != "" && port != ""
}

// Package observability provides OpenTelemetry-based tracing, metrics, and
// structured logging for the gitshare CLI and MCP server.
package observability

import (
	"log/slog"
	"os"
	"time"
)

// AppMode identifies the application execution mode.
type AppMode string

const (
	// ModeCLI is the one-shot report mode.
	ModeCLI AppMode = "cli"
	// ModeMCP is the MCP stdio server mode.
	ModeMCP AppMode = "mcp"
)

const (
	// defaultServiceName is the default OTel service name.
	defaultServiceName = "gitshare"

	// defaultShutdownTimeoutSec is the default shutdown timeout in seconds.
	defaultShutdownTimeoutSec = 5

	// envOTLPEndpoint is the standard OTel env var for the collector address.
	envOTLPEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"

	// envOTLPHeaders is the standard OTel env var for exporter headers.
	envOTLPHeaders = "OTEL_EXPORTER_OTLP_HEADERS"

	// envOTLPInsecure is the standard OTel env var disabling TLS.
	envOTLPInsecure = "OTEL_EXPORTER_OTLP_INSECURE"
)

// Config holds all observability configuration.
type Config struct {
	// ServiceName is the OTel resource service name.
	ServiceName string

	// ServiceVersion is the semantic version of the running binary.
	ServiceVersion string

	// Mode identifies how the binary was launched.
	Mode AppMode

	// OTLPEndpoint is the OTLP gRPC collector address (e.g. "localhost:4317").
	// Empty disables export; providers become no-op.
	OTLPEndpoint string

	// OTLPHeaders are additional gRPC metadata headers for the OTLP exporter.
	OTLPHeaders map[string]string

	// OTLPInsecure disables TLS for the OTLP gRPC connection.
	OTLPInsecure bool

	// LogLevel controls the minimum slog severity.
	LogLevel slog.Level

	// LogJSON enables JSON-formatted log output.
	LogJSON bool

	// ShutdownTimeoutSec is the maximum seconds to wait for flush on shutdown.
	ShutdownTimeoutSec int
}

// DefaultConfig returns a Config with sensible defaults for zero-config startup.
// The OTLP settings are taken from the standard OTEL_EXPORTER_OTLP_* variables.
func DefaultConfig() Config {
	return Config{
		ServiceName:        defaultServiceName,
		Mode:               ModeCLI,
		OTLPEndpoint:       os.Getenv(envOTLPEndpoint),
		OTLPHeaders:        ParseOTLPHeaders(os.Getenv(envOTLPHeaders)),
		OTLPInsecure:       os.Getenv(envOTLPInsecure) == "true",
		LogLevel:           slog.LevelWarn,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}

// LevelFromVerbosity maps the -v count to a log level: warnings by default,
// info with -v and debug with -vv or more.
func LevelFromVerbosity(count int) slog.Level {
	switch {
	case count <= 0:
		return slog.LevelWarn
	case count == 1:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// shutdownTimeout bounds the final telemetry flush. Non-positive values fall
// back to the default.
func (c Config) shutdownTimeout() time.Duration {
	if c.ShutdownTimeoutSec <= 0 {
		return defaultShutdownTimeoutSec * time.Second
	}

	return time.Duration(c.ShutdownTimeoutSec) * time.Second
}

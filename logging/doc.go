// Package logging provides a minimal logging interface and adapters for AgentLoop.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) that the engine, gateway and server use for observability.
// This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewTurnLogger(logging.LogLevelInfo, "json")
//	eng := engine.New(port, gateway, func(o *engine.Options) { o.Logger = logger })
//
// The design intentionally keeps the interface minimal to avoid vendor
// lock-in while supporting structured logging where available.
package logging

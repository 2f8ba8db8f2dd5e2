package logging

import (
	"io"
	"log/slog"
	"os"
	"time"
)

// LogLevel is a thin enum for user friendly level configuration decoupled from slog.
type LogLevel int

const (
	// LogLevelDebug is the debug logging level.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is the informational logging level.
	LogLevelInfo
	// LogLevelWarn is the warning logging level.
	LogLevelWarn
	// LogLevelError is the error logging level.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config string onto a LogLevel, defaulting to info.
func ParseLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// Logger defines the minimal logging interface for AgentLoop. This allows
// users to provide their own logger implementation or use the built-in adapters.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewDefaultSlogLogger creates a Logger using slog.Default().
func NewDefaultSlogLogger() Logger {
	return NewSlogAdapter(slog.Default())
}

// TurnLogger wraps slog.Logger adding cheap contextual cloning helpers for
// the identifiers every turn log line should carry (session, turn,
// component) plus domain convenience methods for tool and model calls.
type TurnLogger struct {
	logger *slog.Logger
}

// LoggerConfig configures construction of a TurnLogger.
type LoggerConfig struct {
	Level  LogLevel
	Format string // json or text
	Output io.Writer
}

// DefaultLoggerConfig returns a baseline JSON info level configuration.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{Level: LogLevelInfo, Format: "json", Output: os.Stdout}
}

// NewLogger builds a TurnLogger from a config (or defaults if nil).
func NewLogger(cfg *LoggerConfig) *TurnLogger {
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: slogLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}
	return &TurnLogger{logger: slog.New(handler)}
}

// NewTurnLogger creates a TurnLogger with the given level and format.
func NewTurnLogger(level LogLevel, format string) *TurnLogger {
	cfg := DefaultLoggerConfig()
	cfg.Level = level
	if format != "" {
		cfg.Format = format
	}
	return NewLogger(cfg)
}

func slogLevel(l LogLevel) slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithComponent returns a logger tagging every entry with the logical
// component (engine, gateway, server, etc.).
func (l *TurnLogger) WithComponent(c string) *TurnLogger {
	return &TurnLogger{logger: l.logger.With(slog.String("component", c))}
}

// WithTurn returns a logger tagging every entry with session and turn identifiers.
func (l *TurnLogger) WithTurn(sessionID, turnID string) *TurnLogger {
	return &TurnLogger{logger: l.logger.With(slog.String("session_id", sessionID), slog.String("turn_id", turnID))}
}

// Debug logs at debug level.
func (l *TurnLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }

// Info logs at info level.
func (l *TurnLogger) Info(msg string, args ...any) { l.logger.Info(msg, args...) }

// Warn logs at warn level.
func (l *TurnLogger) Warn(msg string, args ...any) { l.logger.Warn(msg, args...) }

// Error logs at error level.
func (l *TurnLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

// WithTurn attaches session and turn identifiers to every subsequent entry
// when the logger supports contextual cloning. Custom Logger
// implementations are returned unchanged.
func WithTurn(l Logger, sessionID, turnID string) Logger {
	switch v := l.(type) {
	case *TurnLogger:
		return v.WithTurn(sessionID, turnID)
	case *SlogAdapter:
		return &SlogAdapter{Logger: v.Logger.With(slog.String("session_id", sessionID), slog.String("turn_id", turnID))}
	default:
		return l
	}
}

// LogToolCall records execution details for a tool invocation.
func LogToolCall(l Logger, tool string, dur time.Duration, success bool, err error) {
	args := []any{
		"tool_name", tool,
		"duration_ms", dur.Milliseconds(),
		"success", success,
	}
	if err != nil {
		args = append(args, "error", err.Error())
	}
	if success {
		l.Info("Tool execution completed", args...)
		return
	}
	l.Error("Tool execution failed", args...)
}

// LogModelCall records model call latency and success.
func LogModelCall(l Logger, dur time.Duration, success bool, err error) {
	args := []any{
		"duration_ms", dur.Milliseconds(),
		"success", success,
	}
	if err != nil {
		args = append(args, "error", err.Error())
	}
	if success {
		l.Info("Model call completed", args...)
		return
	}
	l.Error("Model call failed", args...)
}

// NoOpLogger discards all log messages. Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}

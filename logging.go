package sqsdispatch

import (
	"log/slog"

	"github.com/bjaus/sqsdispatch/internal/logging"
)

// LoggerFactory builds the logging handle handed to consumers for a message.
type LoggerFactory interface {
	ForMessage(messageID string) *slog.Logger
}

// LoggerFactoryFunc adapts a function to LoggerFactory.
type LoggerFactoryFunc func(messageID string) *slog.Logger

// ForMessage implements LoggerFactory.
func (f LoggerFactoryFunc) ForMessage(messageID string) *slog.Logger { return f(messageID) }

// MessageLoggers returns a LoggerFactory tagging base with the message ID.
func MessageLoggers(base *slog.Logger) LoggerFactory {
	return LoggerFactoryFunc(func(messageID string) *slog.Logger {
		return base.With(logging.MessageID(messageID))
	})
}

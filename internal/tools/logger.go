package tools

import (
	"time"

	"github.com/rs/zerolog"
)

// Logger records tool executions. The registry defaults to no logging;
// servers install a ZerologLogger at startup.
type Logger interface {
	LogToolCall(toolName string, args map[string]any)
	LogToolResult(toolName string, result string, err error, duration time.Duration)
	LogToolError(toolName string, err error)
}

// ZerologLogger emits structured tool execution events.
type ZerologLogger struct {
	log zerolog.Logger
}

func NewZerologLogger(log zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{log: log}
}

func (l *ZerologLogger) LogToolCall(toolName string, args map[string]any) {
	l.log.Debug().Str("tool", toolName).Interface("args", args).Msg("tool call")
}

func (l *ZerologLogger) LogToolResult(toolName string, result string, err error, duration time.Duration) {
	evt := l.log.Info().Str("tool", toolName).Dur("duration", duration).Int("result_len", len(result))
	if err != nil {
		evt = evt.Err(err)
	}
	evt.Msg("tool result")
}

func (l *ZerologLogger) LogToolError(toolName string, err error) {
	l.log.Warn().Str("tool", toolName).Err(err).Msg("tool error")
}

// NullLogger implements Logger but does nothing (for when logging is disabled)
type NullLogger struct{}

func (n *NullLogger) LogToolCall(toolName string, args map[string]any) {}

func (n *NullLogger) LogToolResult(toolName string, result string, err error, duration time.Duration) {}

func (n *NullLogger) LogToolError(toolName string, err error) {}

package backend

import (
	"fmt"
	"log/slog"
)

// restyLogger adapts slog to resty's logger. Failures are reported by checkResponse,
// so resty's own lines are kept at debug level.
type restyLogger struct {
	logger *slog.Logger
}

func newRestyLogger(logger *slog.Logger) *restyLogger {
	return &restyLogger{logger: logger}
}

func (l *restyLogger) log(level, format string, v ...interface{}) {
	logger := l.logger
	if logger == nil {
		// Resolved per call so the CLI's default logger applies
		logger = slog.Default()
	}
	logger.Debug(fmt.Sprintf(format, v...), "component", "resty", "resty_level", level)
}

func (l *restyLogger) Errorf(format string, v ...interface{}) {
	l.log("error", format, v...)
}

func (l *restyLogger) Warnf(format string, v ...interface{}) {
	l.log("warn", format, v...)
}

func (l *restyLogger) Debugf(format string, v ...interface{}) {
	l.log("debug", format, v...)
}

package logger

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Cron adapts a slog logger to cron.Logger so scheduler events such as skipped
// overlapping runs land in the service log.
func Cron(log *slog.Logger) cron.Logger {
	return cronLogger{log: log}
}

type cronLogger struct {
	log *slog.Logger
}

// Info logs skipped runs at Info; routine scheduler chatter (start, wake, run) goes to Debug.
func (c cronLogger) Info(msg string, keysAndValues ...any) {
	if msg == "skip" {
		c.log.Info("cron: skip", keysAndValues...)
		return
	}
	c.log.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.log.Error("cron: "+msg, append([]any{slog.Any("err", err)}, keysAndValues...)...)
}

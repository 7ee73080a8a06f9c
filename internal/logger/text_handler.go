package logger

import (
	"io"
	"log/slog"
	"time"
)

// consoleTimeFormat is the timestamp layout of text output
const consoleTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// newTextHandler creates a slog text handler that renders timestamps in tz
// and prints the custom trace level as TRACE.
func newTextHandler(w io.Writer, level LogLevel, tz *time.Location) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: parseSlogLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			a = replaceAttr(tz)(groups, a)
			if len(groups) == 0 && a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
				return slog.String(slog.TimeKey, a.Value.Time().Format(consoleTimeFormat))
			}
			return a
		},
	})
}

// replaceAttr returns a ReplaceAttr func shared by text and JSON handlers
func replaceAttr(tz *time.Location) func([]string, slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) > 0 {
			return a
		}
		switch a.Key {
		case slog.TimeKey:
			if a.Value.Kind() == slog.KindTime && tz != nil {
				return slog.Time(slog.TimeKey, a.Value.Time().In(tz))
			}
		case slog.LevelKey:
			if lvl, ok := a.Value.Any().(slog.Level); ok && lvl <= traceLevelValue {
				return slog.String(slog.LevelKey, "TRACE")
			}
		}
		return a
	}
}

package sinks

import (
	"context"
	"log/slog"

	"github.com/Yuliya3k/spacegame-sub000/logging"
)

// SlogSink forwards events to a structured logger, so they share the
// process log stream configured by the CLI.
type SlogSink struct {
	logger *slog.Logger
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Write(event logging.Event) error {
	attrs := make([]slog.Attr, 0, 8)
	attrs = append(attrs,
		slog.Uint64("tick", event.Tick),
		slog.String("actor", formatEntity(event.Actor)),
	)
	if event.Category != "" {
		attrs = append(attrs, slog.String("category", event.Category))
	}
	if len(event.Targets) > 0 {
		attrs = append(attrs, slog.String("targets", formatTargets(event.Targets)[len(" targets="):]))
	}
	if event.Payload != nil {
		attrs = append(attrs, slog.Any("payload", event.Payload))
	}
	if event.SessionID != "" {
		attrs = append(attrs, slog.String("session", event.SessionID))
	}
	for k, v := range event.Extra {
		attrs = append(attrs, slog.Any(k, v))
	}
	s.logger.LogAttrs(context.Background(), slogLevel(event.Severity), string(event.Type), attrs...)
	return nil
}

func (s *SlogSink) Close(context.Context) error {
	return nil
}

func slogLevel(sev logging.Severity) slog.Level {
	switch sev {
	case logging.SeverityDebug:
		return slog.LevelDebug
	case logging.SeverityWarn:
		return slog.LevelWarn
	case logging.SeverityError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

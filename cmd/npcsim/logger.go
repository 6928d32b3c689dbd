package main

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	slogmulti "github.com/samber/slog-multi"
)

func parseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return 0, goerr.Wrap(err, "invalid log level", goerr.V("level", name))
	}
	return level, nil
}

// newLogger writes text records to w and, when path is set, JSON records to
// that file. The returned closer releases the file.
func newLogger(w io.Writer, levelName, path string) (*slog.Logger, func() error, error) {
	level, err := parseLevel(levelName)
	if err != nil {
		return nil, nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	handlers := []slog.Handler{slog.NewTextHandler(w, opts)}
	closer := func() error { return nil }

	if path != "" {
		fh, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "open log file", goerr.V("path", path))
		}
		handlers = append(handlers, slog.NewJSONHandler(fh, opts))
		closer = fh.Close
	}
	return slog.New(slogmulti.Fanout(handlers...)), closer, nil
}

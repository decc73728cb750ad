// Package logging builds the slog loggers used by spp.
package logging

import (
	"io"
	"log/slog"
)

// NewWithWriter creates a logger writing text records to w. The CLI points
// it at stderr, keeping stdout free for preprocessed output. The "error"
// key is shortened to "err".
func NewWithWriter(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}))
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// New builds the shell's diagnostic logger. Every record carries the
// session id so output from host processes can be matched to the shell
// that spawned them.
func New(w io.Writer, level, format, session string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	if session == "" {
		session = NewSession()
	}
	return slog.New(h).With("session", session)
}

func NewSession() string {
	return uuid.NewString()
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

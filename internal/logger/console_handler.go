package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const (
	ansiReset   = "\033[0m"
	ansiRed     = "\033[31m"
	ansiGreen   = "\033[32m"
	ansiYellow  = "\033[33m"
	ansiCyan    = "\033[36m"
	ansiGray    = "\033[90m"
	ansiWhite   = "\033[97m"
	ansiBoldRed = "\033[1;31m"
)

// consoleHandler is a slog.Handler that renders records as single colored
// lines: time, level, message, then key=value attributes.
type consoleHandler struct {
	opts  *slog.HandlerOptions
	mu    *sync.Mutex
	out   io.Writer
	attrs []slog.Attr
	group string
}

// NewConsoleHandler creates a handler that formats log lines with ANSI colors.
func NewConsoleHandler(w io.Writer, opts *slog.HandlerOptions) *consoleHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &consoleHandler{
		opts: opts,
		mu:   &sync.Mutex{},
		out:  w,
	}
}

// Enabled reports whether the handler handles records at the given level
func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

// Handle renders the record as one line and writes it.
func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	if !r.Time.IsZero() {
		b.WriteString(ansiGray + r.Time.Format(time.TimeOnly) + ansiReset + " ")
	}
	b.WriteString(levelColor(r.Level) + strings.ToUpper(r.Level.String()) + ansiReset + " ")
	b.WriteString(messageColor(r.Level) + r.Message + ansiReset)

	for _, a := range h.attrs {
		b.WriteByte(' ')
		h.writeAttr(&b, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		b.WriteByte(' ')
		h.writeAttr(&b, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return ansiRed
	case level >= slog.LevelWarn:
		return ansiYellow
	case level >= slog.LevelInfo:
		return ansiCyan
	default:
		return ansiGray
	}
}

func messageColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return ansiBoldRed
	case level >= slog.LevelWarn:
		return ansiYellow
	case level >= slog.LevelInfo:
		return ansiWhite
	default:
		return ansiGray
	}
}

func (h *consoleHandler) writeAttr(b *strings.Builder, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	key := a.Key
	if h.group != "" {
		key = h.group + "." + key
	}
	b.WriteString(ansiCyan + key + ansiReset + "=")

	switch key {
	case "error":
		b.WriteString(ansiRed + a.Value.String() + ansiReset)
	case "topic", "function", "subscriptionArn":
		// The identifiers an operator greps for first
		b.WriteString(ansiGreen + a.Value.String() + ansiReset)
	default:
		if a.Value.Kind() == slog.KindGroup {
			fmt.Fprintf(b, "%v", a.Value.Group())
			return
		}
		b.WriteString(a.Value.String())
	}
}

// WithAttrs returns a new handler carrying the given attributes.
func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	h2.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	h2.attrs = append(h2.attrs, h.attrs...)
	h2.attrs = append(h2.attrs, attrs...)
	return &h2
}

// WithGroup returns a new handler that qualifies attribute keys with name.
func (h *consoleHandler) WithGroup(name string) slog.Handler {
	h2 := *h
	if h.group != "" {
		h2.group = h.group + "." + name
	} else {
		h2.group = name
	}
	return &h2
}

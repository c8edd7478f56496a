// Package slogutil provides slog handlers and logger constructors for codefacts.
package slogutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"codefacts/internal/errors"
)

// KVHandler writes one line per record:
//
//	2026-01-02T03:04:05Z [info] scanned project | path=/src files=42
type KVHandler struct {
	w      io.Writer
	level  slog.Leveler
	prefix string // group path of attrs added from now on, "a.b."
	pre    []byte // attrs rendered by WithAttrs
	mu     *sync.Mutex
}

// NewKVHandler creates a key=value handler. A nil opts logs at info.
func NewKVHandler(w io.Writer, opts *slog.HandlerOptions) *KVHandler {
	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}
	return &KVHandler{w: w, level: level, mu: &sync.Mutex{}}
}

func (h *KVHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *KVHandler) Handle(_ context.Context, r slog.Record) error {
	line := make([]byte, 0, 128)
	line = r.Time.UTC().AppendFormat(line, time.RFC3339)
	line = append(line, " ["...)
	line = append(line, levelString(r.Level)...)
	line = append(line, "] "...)
	line = append(line, r.Message...)

	mark := len(line)
	line = append(line, " |"...)
	line = append(line, h.pre...)
	r.Attrs(func(a slog.Attr) bool {
		line = appendAttr(line, h.prefix, a)
		return true
	})
	if len(line) == mark+2 {
		line = line[:mark]
	}
	line = append(line, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(line)
	return err
}

func (h *KVHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	c := *h
	c.pre = append([]byte(nil), h.pre...)
	for _, a := range attrs {
		c.pre = appendAttr(c.pre, h.prefix, a)
	}
	return &c
}

func (h *KVHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.prefix = h.prefix + name + "."
	return &c
}

// appendAttr renders " key=value", flattening groups into dotted keys
func appendAttr(buf []byte, prefix string, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return buf
	}
	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, g := range a.Value.Group() {
			buf = appendAttr(buf, prefix, g)
		}
		return buf
	}
	buf = append(buf, ' ')
	buf = append(buf, prefix...)
	buf = append(buf, a.Key...)
	buf = append(buf, '=')
	return append(buf, formatValue(a.Value)...)
}

func levelString(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return "debug"
	case level < slog.LevelWarn:
		return "info"
	case level < slog.LevelError:
		return "warn"
	default:
		return "error"
	}
}

func formatValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindString:
		s = v.String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
			// typed errors keep their path in details, not in the message
			if e, ok := errors.As(err); ok && e.Details["path"] != nil && !strings.Contains(s, fmt.Sprint(e.Details["path"])) {
				s += " (" + fmt.Sprint(e.Details["path"]) + ")"
			}
			break
		}
		s = fmt.Sprint(v.Any())
	default:
		return v.String()
	}
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	ansiReset  = "\033[0m"
	ansiDim    = "\033[2m"
	ansiBold   = "\033[1m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
)

// levelTags maps severities to their coloured three-letter tags, checked in
// order against the record level.
var levelTags = []struct {
	max   slog.Level
	color string
	tag   string
}{
	{slog.LevelInfo, ansiCyan, "DBG"},
	{slog.LevelWarn, ansiGreen, "INF"},
	{slog.LevelError, ansiYellow, "WRN"},
}

// TerminalHandler formats log records as coloured single-line terminal
// output, e.g.:
//
//	15:04:05.000 INF verification completed user_id=42 similarity=0.91
//
// Attribute values of keys named "error" or "err" are rendered in red so
// failed extractions and store errors stand out in a scrolling feed.
// Attributes inherited through WithAttrs are rendered once and replayed as
// bytes on every record.
type TerminalHandler struct {
	writer    io.Writer
	level     slog.Leveler
	preformat []byte
	groups    []string
	mu        *sync.Mutex
}

func newTerminalHandler(w io.Writer, opts *slog.HandlerOptions) *TerminalHandler {
	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}
	return &TerminalHandler{
		writer: w,
		level:  level,
		mu:     &sync.Mutex{},
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *TerminalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle writes one formatted line per record.
func (h *TerminalHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	buf.Grow(256 + len(h.preformat))

	h.writeHeader(&buf, r)
	buf.Write(h.preformat)
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&buf, a, h.groups)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.writer.Write(buf.Bytes())
	return err
}

func (h *TerminalHandler) writeHeader(buf *bytes.Buffer, r slog.Record) {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	buf.WriteString(ansiDim + ts.Format("15:04:05.000") + ansiReset + " ")

	color, tag := ansiRed, "ERR"
	for _, lt := range levelTags {
		if r.Level < lt.max {
			color, tag = lt.color, lt.tag
			break
		}
	}
	buf.WriteString(color + tag + ansiReset + " ")
	buf.WriteString(ansiBold + r.Message + ansiReset)
}

// WithAttrs returns a handler that replays the rendered attrs before each
// record's own.
func (h *TerminalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var buf bytes.Buffer
	buf.Write(h.preformat)
	for _, a := range attrs {
		writeAttr(&buf, a, h.groups)
	}
	return &TerminalHandler{
		writer:    h.writer,
		level:     h.level,
		preformat: buf.Bytes(),
		groups:    h.groups,
		mu:        h.mu,
	}
}

// WithGroup returns a handler that prefixes subsequent attribute keys with
// the group name.
func (h *TerminalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	groups := make([]string, 0, len(h.groups)+1)
	groups = append(groups, h.groups...)
	groups = append(groups, name)
	return &TerminalHandler{
		writer:    h.writer,
		level:     h.level,
		preformat: h.preformat,
		groups:    groups,
		mu:        h.mu,
	}
}

func writeAttr(buf *bytes.Buffer, a slog.Attr, groups []string) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		prefix := groups
		if a.Key != "" {
			prefix = append(append([]string{}, groups...), a.Key)
		}
		for _, ga := range a.Value.Group() {
			writeAttr(buf, ga, prefix)
		}
		return
	}

	buf.WriteString(" " + ansiDim)
	for _, g := range groups {
		buf.WriteString(g + ".")
	}
	buf.WriteString(a.Key + "=" + ansiReset)

	value := renderValue(a.Value)
	if a.Key == "error" || a.Key == "err" {
		value = ansiRed + value + ansiReset
	}
	buf.WriteString(value)
}

func renderValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if strings.ContainsAny(s, " \t\n\"\\") {
			return fmt.Sprintf("%q", s)
		}
		return s
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	default:
		return v.String()
	}
}

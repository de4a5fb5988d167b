package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/isseis/go-elfcheck/internal/color"
)

// ErrConsoleHandlerWriterRequired is returned when ConsoleHandlerOptions has no Writer.
var ErrConsoleHandlerWriterRequired = errors.New("ConsoleHandler: Writer is required")

// consoleSkipKeys are attributes that identify the run rather than the event
// and are left to the log file.
var consoleSkipKeys = map[string]struct{}{
	RunIDKey: {},
}

// ConsoleHandler prints records as one human-readable line each:
// a level tag, the message, then key=value attributes.
type ConsoleHandler struct {
	mu     *sync.Mutex
	writer io.Writer
	level  slog.Leveler
	color  bool
	attrs  []slog.Attr
	groups []string
}

// ConsoleHandlerOptions configures the ConsoleHandler.
type ConsoleHandlerOptions struct {
	// Writer is the output destination, typically os.Stderr.
	Writer io.Writer
	// Level is the minimum level. A *slog.LevelVar allows changing it at run time.
	Level slog.Leveler
	// Color enables ANSI colored level tags.
	Color bool
}

// NewConsoleHandler creates a ConsoleHandler.
func NewConsoleHandler(opts ConsoleHandlerOptions) (*ConsoleHandler, error) {
	if opts.Writer == nil {
		return nil, ErrConsoleHandlerWriterRequired
	}
	level := opts.Level
	if level == nil {
		level = slog.LevelInfo
	}
	return &ConsoleHandler{
		mu:     &sync.Mutex{},
		writer: opts.Writer,
		level:  level,
		color:  opts.Color,
	}, nil
}

// Enabled reports whether the handler handles records at the given level.
func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle writes r as a single line.
func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder
	sb.WriteString(h.formatLevel(r.Level))
	sb.WriteString(" ")
	sb.WriteString(r.Message)

	prefix := ""
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}
	for _, attr := range h.attrs {
		h.appendAttr(&sb, "", attr)
	}
	r.Attrs(func(attr slog.Attr) bool {
		h.appendAttr(&sb, prefix, attr)
		return true
	})
	sb.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.writer, sb.String())
	return err
}

func (h *ConsoleHandler) appendAttr(sb *strings.Builder, prefix string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	if _, skip := consoleSkipKeys[attr.Key]; skip {
		return
	}
	sb.WriteString(" ")
	sb.WriteString(prefix)
	sb.WriteString(attr.Key)
	sb.WriteString("=")
	sb.WriteString(formatValue(attr.Value))
}

// formatLevel returns a fixed-width level tag.
func (h *ConsoleHandler) formatLevel(level slog.Level) string {
	if h.color {
		switch {
		case level >= slog.LevelError:
			return color.Red("X ERROR")
		case level >= slog.LevelWarn:
			return color.Yellow("! WARN ")
		case level >= slog.LevelInfo:
			return color.Green("+ INFO ")
		default:
			return color.Gray("* DEBUG")
		}
	}
	switch {
	case level >= slog.LevelError:
		return "[ERROR]"
	case level >= slog.LevelWarn:
		return "[WARN ]"
	case level >= slog.LevelInfo:
		return "[INFO ]"
	default:
		return "[DEBUG]"
	}
}

// formatValue formats a slog.Value for display
func formatValue(value slog.Value) string {
	value = value.Resolve()
	switch value.Kind() {
	case slog.KindString:
		s := value.String()
		if s == "" || strings.ContainsAny(s, " \t\n\"=") {
			return quote(s)
		}
		return s
	case slog.KindTime:
		return value.Time().Format(time.RFC3339)
	case slog.KindGroup:
		attrs := value.Group()
		parts := make([]string, 0, len(attrs))
		for _, attr := range attrs {
			parts = append(parts, attr.Key+"="+formatValue(attr.Value))
		}
		return "{" + strings.Join(parts, ",") + "}"
	default:
		return value.String()
	}
}

func quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// WithAttrs returns a new handler with additional attributes.
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	prefix := ""
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	for _, attr := range attrs {
		newAttrs = append(newAttrs, slog.Attr{Key: prefix + attr.Key, Value: attr.Value})
	}
	clone := *h
	clone.attrs = newAttrs
	return &clone
}

// WithGroup returns a new handler with an additional group.
func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

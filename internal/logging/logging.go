package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gookit/color"
)

// Mode controls the handler style used when constructing a logger.
type Mode int

const (
	// ModeCLI renders log records in a terse text-oriented format.
	ModeCLI Mode = iota
	// ModeJSON renders log records as JSON.
	ModeJSON
)

// ParseMode maps a --log-format value onto a Mode.
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "text", "cli":
		return ModeCLI, nil
	case "json":
		return ModeJSON, nil
	default:
		return ModeCLI, fmt.Errorf("unknown log format %q", value)
	}
}

// ParseLevel maps a --log-level value onto a slog level.
func ParseLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error", "err":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", value)
	}
}

// New constructs a logger targeting the provided writer using the requested mode.
// If level is nil, slog.LevelInfo is used.
func New(mode Mode, w io.Writer, level slog.Leveler) *slog.Logger {
	if w == nil {
		panic("logging: writer must not be nil")
	}
	if level == nil {
		level = slog.LevelInfo
	}

	switch mode {
	case ModeJSON:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	default:
		return slog.New(newCLIHandler(w, level, IsTerminal(w)))
	}
}

// NewCLI constructs a logger that emits human-readable records suitable for CLI use.
func NewCLI(w io.Writer, level slog.Leveler) *slog.Logger {
	return New(ModeCLI, w, level)
}

// Ensure returns the provided logger or the process default if nil.
func Ensure(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// cliState is shared between a handler and the handlers derived from it so that
// records and status lines written to the same terminal never interleave.
type cliState struct {
	mu        sync.Mutex
	pendingCR bool
}

type cliHandler struct {
	writer io.Writer
	level  slog.Leveler
	color  bool
	state  *cliState

	attrs  []slog.Attr
	groups []string
}

func newCLIHandler(w io.Writer, level slog.Leveler, colored bool) *cliHandler {
	return &cliHandler{
		writer: w,
		level:  level,
		color:  colored,
		state:  &cliState{},
	}
}

func (h *cliHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= currentLevel(h.level)
}

func (h *cliHandler) Handle(_ context.Context, record slog.Record) error {
	var builder strings.Builder
	timestamp := record.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	builder.WriteString(h.levelLabel(record.Level))
	builder.WriteByte(' ')
	builder.WriteString(timestamp.UTC().Format(time.RFC3339))
	builder.WriteString(" | ")
	builder.WriteString(record.Message)

	for _, attr := range h.attrs {
		appendAttr(&builder, h.groups, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		appendAttr(&builder, h.groups, attr)
		return true
	})

	builder.WriteByte('\n')

	h.state.mu.Lock()
	defer h.state.mu.Unlock()

	// a status line may still occupy the current terminal row
	if h.state.pendingCR {
		if _, err := io.WriteString(h.writer, "\n"); err != nil {
			return err
		}
		h.state.pendingCR = false
	}

	_, err := io.WriteString(h.writer, builder.String())
	return err
}

func (h *cliHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cloned := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(cloned, h.attrs)
	cloned = append(cloned, attrs...)

	return &cliHandler{
		writer: h.writer,
		level:  h.level,
		color:  h.color,
		state:  h.state,
		attrs:  cloned,
		groups: append([]string(nil), h.groups...),
	}
}

func (h *cliHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &cliHandler{
		writer: h.writer,
		level:  h.level,
		color:  h.color,
		state:  h.state,
		attrs:  append([]slog.Attr(nil), h.attrs...),
		groups: append(append([]string(nil), h.groups...), name),
	}
}

func (h *cliHandler) levelLabel(level slog.Level) string {
	label := strings.ToUpper(level.String())
	if !h.color {
		return label
	}
	switch {
	case level >= slog.LevelError:
		return color.Red.Sprint(label)
	case level >= slog.LevelWarn:
		return color.Yellow.Sprint(label)
	case level >= slog.LevelInfo:
		return color.Green.Sprint(label)
	default:
		return color.Blue.Sprint(label)
	}
}

func appendAttr(builder *strings.Builder, groups []string, attr slog.Attr) {
	value := resolveValue(attr.Value)
	if value.Kind() == slog.KindGroup {
		nestedGroups := append(append([]string(nil), groups...), attr.Key)
		for _, nested := range value.Group() {
			appendAttr(builder, nestedGroups, nested)
		}
		return
	}
	if attr.Key == "" {
		return
	}

	key := attr.Key
	if len(groups) > 0 {
		key = strings.Join(append(append([]string(nil), groups...), key), ".")
	}

	builder.WriteByte(' ')
	builder.WriteString(key)
	builder.WriteByte('=')
	builder.WriteString(formatValue(value))
}

func formatValue(value slog.Value) string {
	value = resolveValue(value)
	switch value.Kind() {
	case slog.KindString:
		s := value.String()
		if strings.ContainsAny(s, " \t\n\"") {
			return strconv.Quote(s)
		}
		return s
	case slog.KindInt64:
		return strconv.FormatInt(value.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(value.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(value.Float64(), 'f', -1, 64)
	case slog.KindBool:
		return strconv.FormatBool(value.Bool())
	case slog.KindDuration:
		return value.Duration().String()
	case slog.KindTime:
		return value.Time().UTC().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := value.Any().(error); ok && err != nil {
			return strconv.Quote(err.Error())
		}
		return fmt.Sprint(value.Any())
	default:
		return value.String()
	}
}

func currentLevel(level slog.Leveler) slog.Level {
	if level == nil {
		return slog.LevelInfo
	}
	return level.Level()
}

func resolveValue(value slog.Value) slog.Value {
	for i := 0; i < 4; i++ {
		if value.Kind() != slog.KindLogValuer {
			return value
		}
		value = value.Resolve()
	}
	return value
}

// IsTerminal reports whether w is a character device attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isTerminalFd(f.Fd())
}

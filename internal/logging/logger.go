package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options controls how the process-wide logger is built.
type Options struct {
	Level  string // debug | info | warn | error
	Format string // json | console
	Output io.Writer
}

// Setup configures the global zerolog logger and returns it.
func Setup(opts Options) (zerolog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), err
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	switch strings.ToLower(opts.Format) {
	case "", "json":
	case "console":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	default:
		return zerolog.Nop(), fmt.Errorf("unsupported log format: %s", opts.Format)
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	log.Logger = logger
	return logger, nil
}

// ParseLevel maps the configured level name onto a zerolog level.
func ParseLevel(name string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("unsupported log level: %s", name)
	}
}

// Component returns a child of the global logger tagged with a component name.
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// Excerpt truncates text for logs and error messages. Multi-byte runes are
// never split.
func Excerpt(text string, maxLen int) string {
	if maxLen <= 0 || len(text) <= maxLen {
		return text
	}
	cut := maxLen
	for cut > 0 && !utf8RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

// CompactExcerpt collapses whitespace runs to single spaces before truncating.
func CompactExcerpt(text string, maxLen int) string {
	return Excerpt(strings.Join(strings.Fields(text), " "), maxLen)
}

func utf8RuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

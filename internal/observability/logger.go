package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Log formats accepted by LoggingConfig.Format.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
	// FormatAuto writes console output to a terminal and JSON otherwise.
	FormatAuto = "auto"
)

// LoggingConfig contains logger configuration options.
type LoggingConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error, fatal, panic).
	Level string

	// Format is json, console (or pretty) or auto.
	Format string

	// Output is stdout or stderr.
	Output string

	// AddSource adds source file and line number to log entries.
	AddSource bool

	// TimeFormat is the time format for timestamps.
	TimeFormat string
}

// DefaultLoggingConfig returns the logging setup of an interactive run.
// Logs go to stderr so command output on stdout stays clean.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:      "info",
		Format:     FormatAuto,
		Output:     "stderr",
		TimeFormat: time.RFC3339,
	}
}

// NewLogger creates a logger writing to the configured standard stream.
func NewLogger(cfg LoggingConfig) zerolog.Logger {
	out := os.Stderr
	if strings.EqualFold(cfg.Output, "stdout") {
		out = os.Stdout
	}

	format := strings.ToLower(cfg.Format)
	if format == FormatAuto {
		format = FormatJSON
		if isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd()) {
			format = FormatConsole
		}
	}
	cfg.Format = format

	return NewLoggerTo(out, cfg)
}

// NewLoggerTo creates a logger writing to w. FormatAuto is treated as json.
func NewLoggerTo(w io.Writer, cfg LoggingConfig) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	}

	switch strings.ToLower(cfg.Format) {
	case FormatConsole, "pretty":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: zerolog.TimeFieldFormat}
	}

	ctx := zerolog.New(w).With().Timestamp()
	if cfg.AddSource {
		ctx = ctx.Caller()
	}
	return ctx.Logger().Level(parseLevel(cfg.Level))
}

// parseLevel maps a level name to a zerolog level. Unknown names mean info.
func parseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || level == "" || parsed == zerolog.NoLevel || parsed == zerolog.Disabled {
		return zerolog.InfoLevel
	}
	return parsed
}

// WithRunContext adds the run identifier and command name to a logger.
func WithRunContext(logger zerolog.Logger, runID, command string) zerolog.Logger {
	return logger.With().
		Str("run_id", runID).
		Str("command", command).
		Logger()
}

// WithHarvestContext adds the publication month being harvested to a logger.
func WithHarvestContext(logger zerolog.Logger, year, month int) zerolog.Logger {
	return logger.With().
		Int("year", year).
		Int("month", month).
		Logger()
}

// WithChunkContext adds fetch chunk fields to a logger.
func WithChunkContext(logger zerolog.Logger, index, size int) zerolog.Logger {
	return logger.With().
		Int("chunk", index).
		Int("chunk_size", size).
		Logger()
}

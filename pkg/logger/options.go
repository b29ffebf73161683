package logger

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Format selects the handler New builds.
type Format string

const (
	// FormatText is slog's logfmt style handler, the default.
	FormatText Format = "text"

	// FormatPretty is the colorized charmbracelet/log handler used by the
	// interactive commands.
	FormatPretty Format = "pretty"

	// FormatJSON writes one JSON object per record. Used by serve behind a
	// log collector and for ingestion run logs.
	FormatJSON Format = "json"
)

// ParseFormat parses a --log-format value. The empty string is FormatText.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatPretty, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown log format %q (want text, pretty or json)", s)
	}
}

// Option configures a Logger created with New.
type Option func(*config)

// WithDebug sets the log level to Debug when true, Info otherwise.
func WithDebug(debug bool) Option {
	return func(c *config) {
		if debug {
			c.level = slog.LevelDebug
		} else {
			c.level = slog.LevelInfo
		}
	}
}

// WithFormat selects the output format.
func WithFormat(f Format) Option {
	return func(c *config) {
		c.format = f
	}
}

// WithWriter overrides the output writer. Defaults to os.Stdout.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		c.writers = []io.Writer{w}
	}
}

// WithWriters writes every record to each of w.
func WithWriters(w ...io.Writer) Option {
	return func(c *config) {
		c.writers = w
	}
}

// WithSource adds file:line to every record.
func WithSource(source bool) Option {
	return func(c *config) {
		c.source = source
	}
}

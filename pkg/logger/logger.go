// Package logger builds the *slog.Logger used across mnemo. Interactive
// commands log through the charmbracelet/log handler; when stderr is not a
// terminal (the MCP stdio server under a host, scripted runs) records are
// JSON. Output goes to stderr so stdout stays free for command results and
// the MCP stdio transport.
package logger

import (
	"io"
	"log/slog"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// Format is the record format of a logger.
type Format int

const (
	FormatText Format = iota
	FormatPretty
	FormatJSON
)

type config struct {
	level  slog.Level
	format Format
	writer io.Writer
}

// New returns a logger configured by opts. With no options it writes
// Info-and-above text records to stderr.
func New(opts ...Option) *slog.Logger {
	c := &config{
		level:  slog.LevelInfo,
		writer: os.Stderr,
	}
	for _, opt := range opts {
		opt(c)
	}

	switch c.format {
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(c.writer, &slog.HandlerOptions{Level: c.level}))
	case FormatPretty:
		level := charmlog.InfoLevel
		if c.level <= slog.LevelDebug {
			level = charmlog.DebugLevel
		}
		return slog.New(charmlog.NewWithOptions(c.writer, charmlog.Options{
			Level:           level,
			ReportTimestamp: true,
			TimeFormat:      time.Kitchen,
		}))
	default:
		return slog.New(slog.NewTextHandler(c.writer, &slog.HandlerOptions{Level: c.level}))
	}
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

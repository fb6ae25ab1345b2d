// Package logging builds the structured logger shared by every stage.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// Options controls logger construction.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // json, text or auto
	Output io.Writer
}

// New creates a logrus logger. In auto mode it writes text to a terminal and JSON otherwise.
func New(opts Options) (*logrus.Logger, error) {
	log := logrus.New()

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	log.SetOutput(out)

	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	log.SetLevel(level)

	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "json":
		log.SetFormatter(jsonFormatter())
	case "text":
		log.SetFormatter(textFormatter(false))
	case "", "auto":
		if isTerminal(out) {
			log.SetFormatter(textFormatter(true))
		} else {
			log.SetFormatter(jsonFormatter())
		}
	default:
		return nil, fmt.Errorf("unsupported log format %q", opts.Format)
	}
	return log, nil
}

// Component returns a logger tagged with the component name.
func Component(log logrus.FieldLogger, name string) logrus.FieldLogger {
	if log == nil {
		log = Discard()
	}
	return log.WithField("component", name)
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func parseLevel(value string) (logrus.Level, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return logrus.InfoLevel, nil
	}
	level, err := logrus.ParseLevel(value)
	if err != nil {
		return logrus.InfoLevel, fmt.Errorf("invalid log level %q: %w", value, err)
	}
	return level, nil
}

func jsonFormatter() logrus.Formatter {
	return &logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	}
}

func textFormatter(color bool) logrus.Formatter {
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
		ForceColors:     color,
		DisableColors:   !color,
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

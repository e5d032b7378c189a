// Package logging builds the component loggers used across studysync.
//
// Every component logs through a standard *log.Logger with a "[name] "
// prefix. Output goes to stderr and to a size-rotated log file.
package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/studysync/studysync/internal/config"
)

// Sink is the shared destination of all component loggers.
type Sink struct {
	w    io.Writer
	file *lumberjack.Logger
}

// Options tune NewSink.
type Options struct {
	// Quiet drops the stderr writer.
	Quiet bool
	// Stderr replaces os.Stderr, for tests.
	Stderr io.Writer
}

// NewSink opens the rotating log file from cfg. An empty cfg.File logs to
// stderr only.
func NewSink(cfg config.LogConfig, opts Options) (*Sink, error) {
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	var writers []io.Writer
	if !opts.Quiet {
		writers = append(writers, stderr)
	}

	s := &Sink{}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, err
		}
		s.file = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		writers = append(writers, s.file)
	}

	switch len(writers) {
	case 0:
		s.w = io.Discard
	case 1:
		s.w = writers[0]
	default:
		s.w = io.MultiWriter(writers...)
	}
	return s, nil
}

// Logger returns a logger for component, prefixed "[component] ".
func (s *Sink) Logger(component string) *log.Logger {
	return log.New(s.w, "["+component+"] ", log.LstdFlags)
}

// Writer exposes the combined writer.
func (s *Sink) Writer() io.Writer {
	return s.w
}

// Close flushes and closes the log file.
func (s *Sink) Close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}

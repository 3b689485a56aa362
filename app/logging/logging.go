package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Debug bool
	JSON  bool

	// File enables a rotating log file next to stdout.
	File       string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// New builds the process logger and installs it as the slog default. The
// returned closer flushes and closes the log file, if any.
func New(opts Options) (*slog.Logger, io.Closer) {
	return build(os.Stdout, opts)
}

func build(stdout io.Writer, opts Options) (*slog.Logger, io.Closer) {
	var (
		out    io.Writer = stdout
		closer io.Closer = nopCloser{}
	)

	if opts.File != "" {
		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSize,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAge,
			Compress:   opts.Compress,
		}
		out = io.MultiWriter(stdout, file)
		closer = file
	}

	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

package jbeamsync

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// FileLogger couples a slog.Logger with the file backing it. Enabled is false
// when debug logging was not requested and the logger discards everything.
type FileLogger struct {
	Logger  *slog.Logger
	Close   func() error
	Path    string
	Enabled bool
}

// NopLogger returns a logger that discards all records.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// NewFileLogger opens an append-only debug log under dir. With debug false it
// returns a discarding logger and never touches the filesystem.
func NewFileLogger(dir string, debug bool) (FileLogger, error) {
	if !debug {
		return FileLogger{Logger: NopLogger(), Close: func() error { return nil }, Enabled: false}, nil
	}
	logDir := filepath.Join(dir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return FileLogger{Logger: NopLogger(), Close: func() error { return nil }, Enabled: false}, err
	}
	path := filepath.Join(logDir, "jbeamsync.log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return FileLogger{Logger: NopLogger(), Close: func() error { return nil }, Enabled: false}, err
	}
	handler := slog.NewJSONHandler(file, &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	})
	logger := slog.New(handler)
	return FileLogger{
		Logger:  logger,
		Close:   file.Close,
		Path:    path,
		Enabled: true,
	}, nil
}

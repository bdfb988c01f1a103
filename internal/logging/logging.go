// Package logging sets up the diagnostic log. Entries go to a rotating file,
// never to the terminal, so they do not corrupt the chat UI.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// FileName is the log file created under the logs directory
const FileName = "detectchat.log"

// Options configures New
type Options struct {
	// Path of the log file. Empty means <dir>/logs/detectchat.log.
	Path    string
	Verbose bool
}

// Logger is a zerolog logger bound to its rotating file
type Logger struct {
	zerolog.Logger
	file *lumberjack.Logger
}

// DefaultPath returns the log path under the given config directory
func DefaultPath(configDir string) string {
	return filepath.Join(configDir, "logs", FileName)
}

// New creates a JSON logger writing to a rotating file
func New(configDir string, opts Options) (*Logger, error) {
	path := opts.Path
	if path == "" {
		path = DefaultPath(configDir)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}

	return &Logger{
		Logger: NewWriterLogger(file, opts.Verbose),
		file:   file,
	}, nil
}

// NewWriterLogger returns a logger writing JSON lines to w.
// Verbose enables debug entries; otherwise only info and above are kept.
func NewWriterLogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Int("pid", os.Getpid()).
		Logger()
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// Path returns the file the logger writes to, or "" for Nop
func (l *Logger) Path() string {
	if l.file == nil {
		return ""
	}
	return l.file.Filename
}

// Close flushes and closes the log file
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

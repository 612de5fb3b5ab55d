package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default rotation parameters for process log files.
const (
	DefaultMaxSizeMB  = 10 // MB
	DefaultMaxBackups = 3  // number of backup files
	DefaultMaxAgeDays = 7  // days
)

// Config describes where and how supervised process output is written.
// Files are opened in append mode and rotated with lumberjack semantics.
type Config struct {
	Dir        string // base directory for process logs
	MaxSizeMB  int    // megabytes before rotation (default 10)
	MaxBackups int    // number of backups to keep (default 3)
	MaxAgeDays int    // days to keep (default 7)
	Compress   bool   // gzip rotated files
}

// Paths returns the stdout and stderr log file paths for a process name.
// The name is sanitized so it is always a safe file name component.
func (c Config) Paths(name string) (string, string) {
	safe := Sanitize(name)
	return filepath.Join(c.Dir, safe+".stdout.log"),
		filepath.Join(c.Dir, safe+".stderr.log")
}

// Writers returns append-mode io.WriteClosers for stdout and stderr of the
// named process, creating the log directory if needed.
func (c Config) Writers(name string) (io.WriteCloser, io.WriteCloser, error) {
	if err := os.MkdirAll(c.Dir, 0o750); err != nil {
		return nil, nil, err
	}
	stdout, stderr := c.Paths(name)
	mk := func(path string) io.WriteCloser {
		return &lj.Logger{
			Filename:   path,
			MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
			MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
			MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
			Compress:   c.Compress,
		}
	}
	return mk(stdout), mk(stderr), nil
}

// Sanitize replaces every character outside [A-Za-z0-9-_] with an underscore.
func Sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// NewCLILogger builds the slog logger used by the CLI and daemon.
func NewCLILogger(level slog.Level, color bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if color {
		return slog.New(NewColorTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func valOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

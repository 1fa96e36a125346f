package logger

import (
	"io"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions controls log file rotation.
type FileOptions struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultFileOptions keeps a few small compressed backups.
var DefaultFileOptions = FileOptions{
	MaxSizeMB:  10,
	MaxBackups: 3,
	MaxAgeDays: 14,
	Compress:   true,
}

// OpenOutput returns the writer logs should go to. "stderr" or an empty
// path logs to the console; anything else is a rotating log file. The
// returned closer must be closed on shutdown.
func OpenOutput(path string, opts FileOptions) (io.Writer, io.Closer) {
	if path == "" || path == "stderr" {
		return os.Stderr, io.NopCloser(nil)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}
	rot := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}
	return rot, rot
}

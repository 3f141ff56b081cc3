package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// newConsoleWriter renders human-readable lines to stderr.
func newConsoleWriter() io.Writer {
	return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
}

// newFileWriter returns a rotating writer rooted at cfg.FilePath, creating
// its parent directory if necessary. When cfg.RunID is set, the file is
// nested under a "runs/<runID>" subdirectory so each batch's log is
// independently addressable, mirroring the teacher's scan/cycle log layout.
func newFileWriter(cfg Config) (io.Writer, error) {
	path := cfg.FilePath
	if cfg.RunID != "" {
		dir := filepath.Join(filepath.Dir(path), "runs", cfg.RunID)
		path = filepath.Join(dir, filepath.Base(path))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   true,
	}, nil
}

func writerForFormat(format Format, w io.Writer) io.Writer {
	if format == FormatJSON {
		return w
	}
	return zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
}

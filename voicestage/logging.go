package voicestage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var appLog = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
	Level(zerolog.WarnLevel).With().Timestamp().Logger()

func parseLogLevel(s string) (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.WarnLevel, fmt.Errorf("invalid log level: %s", s)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.WarnLevel
	}
	return lvl, nil
}

// rotatingFileWriter truncates the log file once it outgrows max, so a
// long-lived process never fills the disk.
type rotatingFileWriter struct {
	mu   sync.Mutex
	file *os.File
	size int64
	max  int64
}

func newRotatingFileWriter(path string, maxBytes int64) (*rotatingFileWriter, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	size := info.Size()
	if size >= maxBytes {
		if err := file.Truncate(0); err != nil {
			_ = file.Close()
			return nil, err
		}
		if _, err := file.Seek(0, 0); err != nil {
			_ = file.Close()
			return nil, err
		}
		size = 0
	}
	return &rotatingFileWriter{
		file: file,
		size: size,
		max:  maxBytes,
	}, nil
}

func (w *rotatingFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return 0, fmt.Errorf("log file not available")
	}
	if w.size+int64(len(p)) > w.max {
		if err := w.file.Truncate(0); err != nil {
			return 0, err
		}
		if _, err := w.file.Seek(0, 0); err != nil {
			return 0, err
		}
		w.size = 0
	}
	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

func initLogger(path string, level zerolog.Level) error {
	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	if path != "" {
		writer, err := newRotatingFileWriter(path, defaultLogMaxBytes)
		if err != nil {
			return err
		}
		out = writer
	}
	appLog = zerolog.New(out).Level(level).With().Timestamp().Logger()
	return nil
}

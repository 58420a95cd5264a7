// Package observability sets up the process-wide zerolog logger.
package observability

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dkeye/apod/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// SetupLogger configures the global zerolog logger from c and returns a
// closer for any file sink. The caller should defer Close().
func SetupLogger(c config.LogConfig) (io.Closer, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(c.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var console io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	if strings.ToLower(c.Format) == "json" {
		console = os.Stderr
	}

	writers := []io.Writer{console}
	var closer io.Closer = nopCloser{}
	if c.File != "" {
		if dir := filepath.Dir(c.File); dir != "." {
			_ = os.MkdirAll(dir, 0o755)
		}
		lj := &lumberjack.Logger{
			Filename:   c.File,
			MaxSize:    max(c.MaxSizeMB, 1),
			MaxBackups: max(c.MaxBackups, 1),
			MaxAge:     max(c.MaxAgeDays, 1),
			Compress:   c.Compress,
		}
		writers = append(writers, lj)
		closer = lj
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	return closer, nil
}

// Package logger builds the root zerolog logger from configuration.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/noah-isme/gema-edu-api/internal/config"
)

// ErrNoOutput is returned when neither console nor file output is enabled.
var ErrNoOutput = errors.New("logger: no output enabled")

// New returns the root logger for the service. Console output goes to stdout
// (stderr for warn and above); an optional lumberjack file receives every level.
func New(cfg config.LogConfig, service string) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), errors.Wrap(err, fmt.Sprintf("log level %q is not supported", cfg.Level))
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var writers []io.Writer
	if cfg.Console {
		writers = append(writers, consoleWriter(cfg.Pretty))
	}
	if cfg.FilePath != "" {
		file, err := rollingFile(cfg)
		if err != nil {
			return zerolog.Nop(), err
		}
		writers = append(writers, file)
	}
	if len(writers) == 0 {
		return zerolog.Nop(), ErrNoOutput
	}

	if level == zerolog.TraceLevel {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack //nolint:reassign
	}

	root := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		Hook(NewPrometheusHook(service)).
		With().
		Timestamp().
		Str("service", service).
		Logger()

	return root, nil
}

// LevelWriter routes warn and above to a separate writer.
type LevelWriter struct {
	InfoWriter  io.Writer
	ErrorWriter io.Writer
}

func (lw *LevelWriter) Write(p []byte) (int, error) {
	return lw.InfoWriter.Write(p)
}

// WriteLevel implements zerolog.LevelWriter.
func (lw *LevelWriter) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	switch {
	case l == zerolog.Disabled:
		return 0, nil
	case l >= zerolog.WarnLevel && l != zerolog.NoLevel:
		return lw.ErrorWriter.Write(p)
	default:
		return lw.InfoWriter.Write(p)
	}
}

func consoleWriter(pretty bool) io.Writer {
	if !pretty {
		return &LevelWriter{InfoWriter: os.Stdout, ErrorWriter: os.Stderr}
	}

	return &LevelWriter{
		InfoWriter:  zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: zerolog.TimeFieldFormat},
		ErrorWriter: zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: zerolog.TimeFieldFormat},
	}
}

func rollingFile(cfg config.LogConfig) (io.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o750); err != nil {
		return nil, errors.Wrapf(err, "create log directory for %s", cfg.FilePath)
	}

	return &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.FileMaxSizeMB,
		MaxAge:     cfg.FileMaxAge,
		MaxBackups: cfg.FileBackups,
	}, nil
}

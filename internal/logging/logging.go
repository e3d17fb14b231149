// Package logging backs the domain Logger contract with zerolog.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/ochairo/zepup/internal/domain/interfaces"
)

// Logger adapts a zerolog.Logger to interfaces.Logger
type Logger struct {
	zl zerolog.Logger
}

// LevelFor maps a -v count to a zerolog level
func LevelFor(verbosity int) zerolog.Level {
	switch verbosity {
	case 0:
		return zerolog.WarnLevel
	case 1:
		return zerolog.InfoLevel
	case 2:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

// New creates a logger writing console-formatted records to w
func New(w io.Writer, verbosity int, color bool) *Logger {
	console := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.Kitchen,
		NoColor:    !color,
	}
	return fromWriter(console, verbosity)
}

// Setup creates the CLI logger: console output on stderr, coloured only when
// stderr is a terminal, plus JSON records appended to logFile when it is set.
// A log file that cannot be opened is reported and skipped.
func Setup(verbosity int, logFile string) *Logger {
	fd := os.Stderr.Fd()
	color := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)

	writers := []io.Writer{zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
		NoColor:    !color,
	}}

	var fileErr error
	if logFile != "" {
		f, err := openLogFile(logFile)
		if err != nil {
			fileErr = err
		} else {
			writers = append(writers, f)
		}
	}

	logger := fromWriter(zerolog.MultiLevelWriter(writers...), verbosity)
	if fileErr != nil {
		logger.Warn("failed to open log file, logging to console only",
			interfaces.F("path", logFile), interfaces.Err(fileErr))
	}
	logger.Debug("logger initialized", interfaces.F("verbosity", verbosity))
	return logger
}

func fromWriter(w io.Writer, verbosity int) *Logger {
	zl := zerolog.New(w).Level(LevelFor(verbosity)).With().Timestamp().Logger()
	if verbosity >= 2 {
		zl = zl.With().Caller().Logger()
	}
	return &Logger{zl: zl}
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// Debug logs at debug level
func (l *Logger) Debug(msg string, fields ...interfaces.Field) {
	emit(l.zl.Debug(), msg, fields)
}

// Info logs at info level
func (l *Logger) Info(msg string, fields ...interfaces.Field) {
	emit(l.zl.Info(), msg, fields)
}

// Warn logs at warn level
func (l *Logger) Warn(msg string, fields ...interfaces.Field) {
	emit(l.zl.Warn(), msg, fields)
}

// Error logs at error level
func (l *Logger) Error(msg string, fields ...interfaces.Field) {
	emit(l.zl.Error(), msg, fields)
}

// Named returns a child logger tagged with a component name
func (l *Logger) Named(component string) interfaces.Logger {
	return &Logger{zl: l.zl.With().Str("component", component).Logger()}
}

func emit(event *zerolog.Event, msg string, fields []interfaces.Field) {
	if event == nil {
		return
	}
	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			event = event.AnErr(f.Key, err)
			continue
		}
		event = event.Interface(f.Key, f.Value)
	}
	event.Msg(msg)
}

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/hylla/trestle/internal/config"
	"github.com/hylla/trestle/internal/platform"
	"github.com/hylla/trestle/internal/tui"
)

// runtimeLogger writes runtime events to the console and, in dev mode, to a
// daily logfmt file under logging.dev_file.dir. Loggers derived with With
// share both outputs and the console switch.
type runtimeLogger struct {
	console *charmLog.Logger
	file    *charmLog.Logger
	out     *logOutputs
}

// logOutputs is owned by the root logger and shared with derived ones.
type logOutputs struct {
	consoleMuted atomic.Bool
	path         string
	closeOnce    sync.Once
	closeFile    func() error
}

// newRuntimeLogger builds the logger for one command. appName is the resolved
// app directory name, so the dev file matches platform.LogFile.
func newRuntimeLogger(stderr io.Writer, appName string, devMode bool, cfg config.LoggingConfig, now func() time.Time) (*runtimeLogger, error) {
	level, err := charmLog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse logging level %q: %w", cfg.Level, err)
	}
	if now == nil {
		now = time.Now
	}
	if stderr == nil {
		stderr = io.Discard
	}

	logger := &runtimeLogger{
		console: newLogSink(stderr, appName, level, charmLog.TextFormatter),
		out:     &logOutputs{},
	}
	if !devMode || !cfg.DevFile.Enabled {
		return logger, nil
	}

	path := platform.LogFile(cfg.DevFile.Dir, appName, now())
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create dev log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open dev log file: %w", err)
	}
	logger.file = newLogSink(f, appName, level, charmLog.LogfmtFormatter)
	logger.out.path = path
	logger.out.closeFile = f.Close
	return logger, nil
}

func newLogSink(w io.Writer, prefix string, level charmLog.Level, formatter charmLog.Formatter) *charmLog.Logger {
	return charmLog.NewWithOptions(w, charmLog.Options{
		Level:           level,
		Prefix:          prefix,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       formatter,
	})
}

// With returns a logger that adds keyvals to every event, e.g. a drag session id.
func (l *runtimeLogger) With(keyvals ...any) tui.Logger {
	if l == nil {
		return l
	}
	child := &runtimeLogger{console: l.console.With(keyvals...), out: l.out}
	if l.file != nil {
		child.file = l.file.With(keyvals...)
	}
	return child
}

// DevLogPath returns the dev log file, or "" when file logging is off.
func (l *runtimeLogger) DevLogPath() string {
	if l == nil {
		return ""
	}
	return l.out.path
}

// Close closes the dev log file. Later calls are no-ops.
func (l *runtimeLogger) Close() error {
	if l == nil || l.out.closeFile == nil {
		return nil
	}
	var err error
	l.out.closeOnce.Do(func() { err = l.out.closeFile() })
	return err
}

// SetConsoleEnabled mutes or unmutes the console for this logger and every
// logger derived from it.
func (l *runtimeLogger) SetConsoleEnabled(enabled bool) {
	if l == nil {
		return
	}
	l.out.consoleMuted.Store(!enabled)
}

func (l *runtimeLogger) consoleEnabled() bool {
	return l != nil && !l.out.consoleMuted.Load()
}

func (l *runtimeLogger) emit(level charmLog.Level, msg string, keyvals ...any) {
	if l == nil {
		return
	}
	if l.consoleEnabled() {
		l.console.Log(level, msg, keyvals...)
	}
	if l.file != nil {
		l.file.Log(level, msg, keyvals...)
	}
}

// Debug logs a debug event.
func (l *runtimeLogger) Debug(msg string, keyvals ...any) {
	l.emit(charmLog.DebugLevel, msg, keyvals...)
}

// Info logs an informational event.
func (l *runtimeLogger) Info(msg string, keyvals ...any) {
	l.emit(charmLog.InfoLevel, msg, keyvals...)
}

// Warn logs a warning.
func (l *runtimeLogger) Warn(msg string, keyvals ...any) {
	l.emit(charmLog.WarnLevel, msg, keyvals...)
}

// Error logs an error.
func (l *runtimeLogger) Error(msg string, keyvals ...any) {
	l.emit(charmLog.ErrorLevel, msg, keyvals...)
}

package logger

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	baseOnce sync.Once
	base     *slog.Logger
	level    = new(slog.LevelVar)
)

// Logger carries the component/file/function scope of a log line. Values are
// cheap to copy, so scoping returns a new Logger instead of mutating.
type Logger struct {
	name     string
	file     string
	function string
	log      *slog.Logger
}

func initBase() {
	baseOnce.Do(func() {
		base = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		}))
		slog.SetDefault(base)
	})
}

// SetLevel changes the process-wide level. Loggers created earlier follow it.
func SetLevel(name string) {
	initBase()
	level.Set(parseLevel(name))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func New(name string) Logger {
	initBase()
	return Logger{name: name, log: base}
}

func (l Logger) File(file string) Logger {
	l.file = file
	return l
}

func (l Logger) Function(function string) Logger {
	l.function = function
	return l
}

func (l Logger) with(args []any) []any {
	scoped := make([]any, 0, len(args)+6)
	scoped = append(scoped, "component", l.name)
	if l.file != "" {
		scoped = append(scoped, "file", l.file)
	}
	if l.function != "" {
		scoped = append(scoped, "function", l.function)
	}
	return append(scoped, args...)
}

func (l Logger) logger() *slog.Logger {
	if l.log == nil {
		return slog.Default()
	}
	return l.log
}

func (l Logger) Debug(msg string, args ...any) {
	l.logger().Debug(msg, l.with(args)...)
}

func (l Logger) Info(msg string, args ...any) {
	l.logger().Info(msg, l.with(args)...)
}

func (l Logger) Warn(msg string, args ...any) {
	l.logger().Warn(msg, l.with(args)...)
}

// Error logs msg and returns it as an error.
func (l Logger) Error(msg string, args ...any) error {
	l.logger().Error(msg, l.with(args)...)
	return errors.New(msg)
}

// Err logs msg with the cause and returns msg wrapping err.
func (l Logger) Err(msg string, err error, args ...any) error {
	l.logger().Error(msg, l.with(append(args, "error", err))...)
	return fmt.Errorf("%s: %w", msg, err)
}

// ErrMsg logs msg and returns it as an error, without extra attributes.
func (l Logger) ErrMsg(msg string) error {
	l.logger().Error(msg, l.with(nil)...)
	return errors.New(msg)
}

// Er logs msg with the cause and returns nothing.
func (l Logger) Er(msg string, err error, args ...any) {
	l.logger().Error(msg, l.with(append(args, "error", err))...)
}

// ErMsg logs msg at error level and returns nothing.
func (l Logger) ErMsg(msg string, args ...any) {
	l.logger().Error(msg, l.with(args)...)
}

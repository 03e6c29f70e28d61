// Package logger provides a small leveled logger writing to stderr.
// Stderr is mandatory here: when the MCP server runs over the stdio
// transport, stdout carries protocol frames and must stay clean.
package logger

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
)

// Level is a log severity level.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// currentLevel defaults to Info. Tool handlers may run concurrently,
// so the level is stored atomically.
var currentLevel atomic.Int32

func init() {
	currentLevel.Store(int32(LevelInfo))
}

// SetLevel sets the minimum level that will be emitted.
func SetLevel(level Level) {
	currentLevel.Store(int32(level))
}

// SetLevelFromString sets the level from a config string. Unknown
// values fall back to Info.
func SetLevelFromString(level string) {
	switch strings.ToLower(level) {
	case "debug":
		SetLevel(LevelDebug)
	case "info":
		SetLevel(LevelInfo)
	case "warn", "warning":
		SetLevel(LevelWarn)
	case "error":
		SetLevel(LevelError)
	default:
		SetLevel(LevelInfo)
	}
}

// IsDebugEnabled reports whether debug logging is active.
func IsDebugEnabled() bool {
	return Level(currentLevel.Load()) <= LevelDebug
}

// Debug emits a debug-level message.
func Debug(format string, args ...any) {
	logf(LevelDebug, "DEBUG", format, args...)
}

// Info emits an info-level message.
func Info(format string, args ...any) {
	logf(LevelInfo, "INFO", format, args...)
}

// Warn emits a warning-level message.
func Warn(format string, args ...any) {
	logf(LevelWarn, "WARN", format, args...)
}

// Error emits an error-level message.
func Error(format string, args ...any) {
	logf(LevelError, "ERROR", format, args...)
}

func logf(level Level, tag, format string, args ...any) {
	if Level(currentLevel.Load()) > level {
		return
	}
	fmt.Fprintf(os.Stderr, "["+tag+"] "+format+"\n", args...)
}

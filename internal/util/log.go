package util

import (
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"gopkg.in/natefinch/lumberjack.v2"
)

func init() {
	pterm.DefaultLogger.ShowTime = true
	pterm.DefaultLogger.TimeFormat = "02 Jan 15:04:05"
	pterm.DefaultLogger.MaxWidth = 1000
}

// Leveled logging functions backed by pterm prefixed printers.
// All output goes to stderr by default (pterm's default).

func LogDebug(format string, args ...interface{}) {
	pterm.DefaultLogger.Debug(fmt.Sprintf(format, args...))
}

func LogInfo(format string, args ...interface{}) {
	pterm.DefaultLogger.Info(fmt.Sprintf(format, args...))
}

func LogSuccess(format string, args ...interface{}) {
	pterm.DefaultLogger.Info(fmt.Sprintf(format, args...))
}

func LogWarning(format string, args ...interface{}) {
	pterm.DefaultLogger.Warn(fmt.Sprintf(format, args...))
}

func LogError(format string, args ...interface{}) {
	pterm.DefaultLogger.Error(fmt.Sprintf(format, args...))
}

// EnableDebug configures the logger to show debug messages.
func EnableDebug() {
	pterm.DefaultLogger.Level = pterm.LogLevelDebug
}

// LogFile describes an optional rotating log file.
type LogFile struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// SetLogFile tees the logger into a rotating file in addition to stderr.
// An empty path leaves the logger untouched. The returned closer flushes
// and closes the file.
func SetLogFile(f LogFile) io.Closer {
	if f.Path == "" {
		return nopCloser{}
	}

	rot := &lumberjack.Logger{
		Filename:   f.Path,
		MaxSize:    max(f.MaxSizeMB, 10),
		MaxBackups: max(f.MaxBackups, 1),
		MaxAge:     max(f.MaxAgeDays, 7),
		Compress:   f.Compress,
	}

	pterm.DefaultLogger.Writer = io.MultiWriter(os.Stderr, rot)
	return rot
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

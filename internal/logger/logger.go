// Package logger provides the levelled logging interface used by the engine.
package logger

import (
	"fmt"
	"log"
	"os"
)

// LogLevel - log level type
type LogLevel int

const (
	LogDebug LogLevel = iota
	LogInfo
	LogError
)

var logLevelPrefix = map[LogLevel]string{
	LogDebug: "DEBUG",
	LogInfo:  "INFO",
	LogError: "ERROR",
}

func (l LogLevel) String() string {
	return logLevelPrefix[l]
}

// ParseLevel accepts "debug", "info" or "error".
func ParseLevel(s string) (LogLevel, error) {
	switch s {
	case "debug", "DEBUG":
		return LogDebug, nil
	case "info", "INFO", "":
		return LogInfo, nil
	case "error", "ERROR":
		return LogError, nil
	}
	return LogInfo, fmt.Errorf("unknown log level %q", s)
}

// ILogger - Generic logger interface
type ILogger interface {
	Printf(level LogLevel, format string, a ...interface{})
	Debugf(format string, a ...interface{})
	Infof(format string, a ...interface{})
	Errorf(format string, a ...interface{})
}

// StdErrLogger writes lines at or above its level to stderr.
type StdErrLogger struct {
	logLevel LogLevel
	out      *log.Logger
}

// NewStdErrLogger creates a logger with the file:line prefix the CLIs use.
func NewStdErrLogger(level LogLevel) *StdErrLogger {
	return &StdErrLogger{
		logLevel: level,
		out:      log.New(os.Stderr, "", log.LstdFlags|log.Lshortfile),
	}
}

func (l *StdErrLogger) Printf(level LogLevel, format string, a ...interface{}) {
	if level < l.logLevel {
		return
	}
	txt := logLevelPrefix[level] + ": " + fmt.Sprintf(format, a...)
	// depth 3: Output <- Printf <- Debugf/Infof/Errorf <- caller
	_ = l.out.Output(3, txt)
}
func (l *StdErrLogger) Debugf(format string, a ...interface{}) {
	l.Printf(LogDebug, format, a...)
}
func (l *StdErrLogger) Infof(format string, a ...interface{}) {
	l.Printf(LogInfo, format, a...)
}
func (l *StdErrLogger) Errorf(format string, a ...interface{}) {
	l.Printf(LogError, format, a...)
}

func (l *StdErrLogger) SetLogLevel(level LogLevel) {
	l.logLevel = level
}
func (l *StdErrLogger) GetLogLevel() LogLevel {
	return l.logLevel
}

// NullLogger - For mocking out in tests
type NullLogger struct {
}

func (l NullLogger) Printf(level LogLevel, format string, a ...interface{}) {}
func (l NullLogger) Debugf(format string, a ...interface{})                 {}
func (l NullLogger) Infof(format string, a ...interface{})                  {}
func (l NullLogger) Errorf(format string, a ...interface{})                 {}

// MemLogger keeps formatted lines in memory so tests can assert on them.
type MemLogger struct {
	Lines []string
}

func (l *MemLogger) Printf(level LogLevel, format string, a ...interface{}) {
	l.Lines = append(l.Lines, logLevelPrefix[level]+": "+fmt.Sprintf(format, a...))
}
func (l *MemLogger) Debugf(format string, a ...interface{}) {
	l.Printf(LogDebug, format, a...)
}
func (l *MemLogger) Infof(format string, a ...interface{}) {
	l.Printf(LogInfo, format, a...)
}
func (l *MemLogger) Errorf(format string, a ...interface{}) {
	l.Printf(LogError, format, a...)
}

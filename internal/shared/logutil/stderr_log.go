package logutil

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus" //nolint:depguard
)

// StderrLog filters by LogLevel itself and uses logrus only for formatting.
type StderrLog struct {
	name      string
	logger    *logrus.Logger
	level     LogLevel
	debugKeys map[string]bool
}

var _ Log = NewStderrLog("")

func NewStderrLog(name string, debugKeys ...string) *StderrLog {
	return NewWriterLog(os.Stderr, name, debugKeys...)
}

// NewWriterLog is NewStderrLog with a custom destination, tests use it to capture output.
func NewWriterLog(out io.Writer, name string, debugKeys ...string) *StderrLog {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	logger.Out = out
	logger.Formatter = &logrus.TextFormatter{
		DisableTimestamp: true, // `INFO[0007] msg` -> `INFO msg`
	}

	sl := &StderrLog{
		name:      name,
		logger:    logger,
		level:     LogLevelWarn,
		debugKeys: make(map[string]bool, len(debugKeys)),
	}
	for _, k := range debugKeys {
		sl.debugKeys[k] = true
	}
	return sl
}

func (sl StderrLog) logf(level LogLevel, format string, args []interface{}) {
	if level < sl.level {
		return
	}

	msg := fmt.Sprintf(format, args...)
	if sl.name != "" {
		msg = "[" + sl.name + "] " + msg
	}

	switch level {
	case LogLevelDebug:
		sl.logger.Debug(msg)
	case LogLevelInfo:
		sl.logger.Info(msg)
	case LogLevelWarn:
		sl.logger.Warn(msg)
	default:
		sl.logger.Error(msg)
	}
}

func (sl StderrLog) Fatalf(format string, args ...interface{}) {
	sl.logf(LogLevelError, format, args)
	os.Exit(1)
}

func (sl StderrLog) Errorf(format string, args ...interface{}) {
	sl.logf(LogLevelError, format, args)
}

func (sl StderrLog) Warnf(format string, args ...interface{}) {
	sl.logf(LogLevelWarn, format, args)
}

func (sl StderrLog) Infof(format string, args ...interface{}) {
	sl.logf(LogLevelInfo, format, args)
}

// Debugf logs only for keys enabled at construction, e.g. "seal" or "reconcile".
func (sl StderrLog) Debugf(key string, format string, args ...interface{}) {
	if sl.debugKeys[key] {
		sl.logf(LogLevelDebug, format, args)
	}
}

func (sl StderrLog) Child(name string) Log {
	child := sl
	if sl.name != "" {
		name = sl.name + "/" + name
	}
	child.name = name

	return &child
}

func (sl *StderrLog) SetLevel(level LogLevel) {
	sl.level = level
}

package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

const (
	timeFormat = "2006-01-02 15:04:05"
)

// Fields ...
type Fields = logrus.Fields

// New builds a logger owned by the caller. Nothing is registered globally,
// so several listeners in one process can log at different levels.
func New(module string, level string, out io.Writer) *logrus.Entry {
	if out == nil {
		out = os.Stdout
	}
	customFormatter := &logrus.TextFormatter{}
	customFormatter.TimestampFormat = timeFormat
	customFormatter.FullTimestamp = true

	logger := logrus.New()
	logger.SetFormatter(customFormatter)
	logger.SetOutput(out)
	logger.SetLevel(ParseLevel(level))

	entry := logger.WithFields(logrus.Fields{
		"module": module,
	})
	entry.WithFields(logrus.Fields{
		"event": "init_logger",
	}).Debug("logger initiated")
	return entry
}

// ParseLevel maps a config level, unknown values mean info.
func ParseLevel(level string) logrus.Level {
	switch level {
	case "error":
		return logrus.ErrorLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

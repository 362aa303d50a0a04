// Package logger provides the application-wide leveled logger used by all
// components, backed by op/go-logging.
package logger

import (
	"os"

	"github.com/op/go-logging"
)

var logger *logging.Logger

func init() {
	InitLogger(logging.INFO)
}

// InitLogger (re)initializes the global logger with the given level.
func InitLogger(level logging.Level) {
	newLogger := logging.MustGetLogger("confighub")

	var backend logging.Backend = logging.NewLogBackend(os.Stderr, "", 0)
	format := logging.MustStringFormatter(`%{time:2006/01/02 15:04:05} %{level} - %{message}`)
	backend = logging.NewBackendFormatter(backend, format)
	leveled := logging.AddModuleLevel(backend)
	leveled.SetLevel(level, "")
	newLogger.SetBackend(leveled)

	logger = newLogger
}

func Debug(args ...any) {
	logger.Debug(args...)
}

func Debugf(format string, args ...any) {
	logger.Debugf(format, args...)
}

func Info(args ...any) {
	logger.Info(args...)
}

func Infof(format string, args ...any) {
	logger.Infof(format, args...)
}

func Warning(args ...any) {
	logger.Warning(args...)
}

func Warningf(format string, args ...any) {
	logger.Warningf(format, args...)
}

func Error(args ...any) {
	logger.Error(args...)
}

func Errorf(format string, args ...any) {
	logger.Errorf(format, args...)
}

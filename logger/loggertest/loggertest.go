// Package loggertest provides loggers that record entries for test assertions.
package loggertest

import (
	"okrproject/logger"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// New returns a debug-level logger and the entries it has written.
func New() (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return &logger.Logger{SugaredLogger: zap.New(core).Sugar()}, logs
}

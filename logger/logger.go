package logger

import (
	"go.uber.org/zap"
)

var Log *zap.SugaredLogger

// Init builds the global sugared logger. Call once from main before anything
// else touches Log.
func Init(development bool) {
	var (
		logger *zap.Logger
		err    error
	)
	if development {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic("failed to initialize zap logger: " + err.Error())
	}
	Log = logger.Sugar()
}

// Sync flushes buffered log entries. Safe to defer from main.
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}

func init() {
	// Tests and library consumers get a usable logger without calling Init.
	Log = zap.NewNop().Sugar()
}

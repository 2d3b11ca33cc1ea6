package logger

import "go.uber.org/zap"

// NewNopLogger returns an ILogger that discards everything. Test helper.
func NewNopLogger() *ZapLogger {
	return &ZapLogger{logger: zap.NewNop()}
}

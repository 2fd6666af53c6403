package logger

import "github.com/rs/zerolog"

// NewTestLogger returns a logger that discards all output. For tests.
func NewTestLogger() Logger {
	nop := zerolog.Nop()
	return &zerologLogger{
		logger: &nop,
		fields: make(map[string]interface{}),
	}
}

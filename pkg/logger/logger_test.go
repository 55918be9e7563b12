package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   DEBUG,
		"DEBUG":   DEBUG,
		" warn ":  WARN,
		"warning": WARN,
		"error":   ERROR,
		"fatal":   FATAL,
		"info":    INFO,
		"":        INFO,
		"verbose": INFO,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}

func TestNopLoggerDoesNotPanic(t *testing.T) {
	log := NewNop().With("component", "test")
	log.Debug("debug %d", 1)
	log.Infow("info", "key", "value")
	log.Warnw("warn")
	log.Errorw("error", "err", assert.AnError)
}

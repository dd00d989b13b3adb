package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"WARN":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLevel(in), "level %q", in)
	}
}

func TestNewAndNop(t *testing.T) {
	l, err := New("debug")
	require.NoError(t, err)
	l.With(String("k", "v")).Debug("hello", Int("n", 1))

	nop := NewNop()
	nop.Info("discarded", Bool("ok", true))
	assert.NoError(t, nop.Sync())
}

package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"info", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestForComponent_TagsEntries(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := NewZapAdapter(zap.New(core))

	l := ForComponent(base, "specialist-pool")
	l.Info("dispatching", map[string]interface{}{"agents": 2})

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		ctx := entries[0].ContextMap()
		assert.Equal(t, "specialist-pool", ctx["component"])
		assert.EqualValues(t, 2, ctx["agents"])
	}
}

func TestForComponent_NilLogger(t *testing.T) {
	l := ForComponent(nil, "router")
	assert.NotNil(t, l)
	l.Warn("no panic", nil)
}

func TestMapToZapFields_Errors(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewZapAdapter(zap.New(core))

	l.Error("call failed", map[string]interface{}{"error": errors.New("throttled")})

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "throttled", entries[0].ContextMap()["error"])
	}
}

func TestNew_FallsBackToConsole(t *testing.T) {
	assert.NotNil(t, New("debug", "console"))
	assert.NotNil(t, New("info", "json"))
	assert.NotNil(t, NewStructured("info", "json"))
	assert.NotNil(t, NewTestLogger(t))
}

package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level   string
		enabled zapcore.Level
		muted   zapcore.Level
	}{
		{"", zapcore.InfoLevel, zapcore.DebugLevel},
		{"debug", zapcore.DebugLevel, zapcore.DebugLevel - 1},
		{"warn", zapcore.WarnLevel, zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l, err := New(tt.level)
			if err != nil {
				t.Fatalf("New(%q): %v", tt.level, err)
			}
			if !l.Core().Enabled(tt.enabled) {
				t.Fatalf("level %s should be enabled", tt.enabled)
			}
			if l.Core().Enabled(tt.muted) {
				t.Fatalf("level %s should be muted", tt.muted)
			}
		})
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New("loud"); err == nil {
		t.Fatal("expected an error for an unknown level")
	}
}

func TestNamedNilBase(t *testing.T) {
	if Named(nil, "svc") == nil {
		t.Fatal("Named(nil) must return a usable logger")
	}
}

package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_Environments(t *testing.T) {
	for _, env := range []string{"prod", "local", "dev"} {
		l, err := NewLogger(env)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", env, err)
		}
		if l == nil {
			t.Fatalf("%s: nil logger", env)
		}
	}
}

func TestNewLogger_LevelOverride(t *testing.T) {
	l, err := NewLogger("prod", "warn")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
	if !l.Core().Enabled(zapcore.WarnLevel) {
		t.Error("warn should be enabled")
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	if _, err := NewLogger("local", "loud"); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestNewLogger_TestEnvIsNop(t *testing.T) {
	l, err := NewLogger("test", "debug")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("test logger should discard everything")
	}
}

func TestContextLogger(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("expected nop logger for empty context")
	}
	l := zap.NewExample()
	if got := FromContext(ContextWithLogger(context.Background(), l)); got != l {
		t.Error("expected stored logger")
	}
}

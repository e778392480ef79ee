package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Environments(t *testing.T) {
	for _, env := range []string{"prod", "local", "dev", "docker", "cli"} {
		t.Run(env, func(t *testing.T) {
			l, err := NewLogger(env)
			if err != nil {
				t.Fatalf("NewLogger(%q): %v", env, err)
			}
			if l == nil {
				t.Fatal("nil logger")
			}
		})
	}
}

func TestNewLogger_UnknownEnv(t *testing.T) {
	if _, err := NewLogger("staging"); err == nil {
		t.Error("expected error for unknown env")
	}
}

func TestNewLogger_LevelOverride(t *testing.T) {
	l, err := NewLogger("prod", "debug")
	if err != nil {
		t.Fatal(err)
	}
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug should be enabled")
	}
	if _, err := NewLogger("prod", "loud"); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := zap.New(core)
	ctx := ContextWithLogger(context.Background(), l)

	FromContext(ctx).Info("hello")
	if logs.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", logs.Len())
	}

	def := zap.NewNop()
	if FromContextOr(context.Background(), def) != def {
		t.Error("expected fallback logger")
	}
	if FromContextOr(ctx, def) != l {
		t.Error("expected context logger")
	}
}

func TestFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	zap.New(core).Info("x", append(ModelFields("id1", "Random Forest", "forest"), Operation("train"))...)

	ctx := logs.All()[0].ContextMap()
	if ctx[KeyModelID] != "id1" || ctx[KeyOperation] != "train" || ctx[KeyFamily] != "forest" {
		t.Errorf("unexpected fields: %v", ctx)
	}
}

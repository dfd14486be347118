package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func withObservedLogger(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	core, recorded := observer.New(level)
	global.Store(zap.New(core))
	t.Cleanup(func() { global.Store(zap.NewNop()) })
	return recorded
}

func TestInitSetsLevel(t *testing.T) {
	t.Cleanup(func() { global.Store(zap.NewNop()) })

	if err := Init("debug"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !Logger().Core().Enabled(zap.DebugLevel) {
		t.Fatal("expected debug level to be enabled")
	}

	// Bad level strings fall back to info rather than failing.
	if err := Init("nonsense"); err != nil {
		t.Fatalf("Init with bad level: %v", err)
	}
	if Logger().Core().Enabled(zap.DebugLevel) {
		t.Fatal("expected fallback level to be info")
	}
}

func TestHelpersEmit(t *testing.T) {
	recorded := withObservedLogger(t, zap.DebugLevel)

	Info("a", zap.String("k", "v"))
	Warn("b")
	Error("c")
	Debug("d")

	entries := recorded.All()
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	if entries[0].ContextMap()["k"] != "v" {
		t.Fatalf("expected field k=v, got %v", entries[0].ContextMap())
	}
}

func TestWithModuleField(t *testing.T) {
	recorded := withObservedLogger(t, zap.InfoLevel)

	WithModule("authz").Info("decision")

	entries := recorded.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].ContextMap()["module"] != "authz" {
		t.Fatalf("expected module field authz, got %v", entries[0].ContextMap())
	}
}

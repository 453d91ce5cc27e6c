package logging

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestFromContextFallsBackToDefault(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatalf("expected default logger")
	}
}

func TestWithLoggerRoundTrip(t *testing.T) {
	l := zaptest.NewLogger(t)
	ctx := WithLogger(context.Background(), l)
	if got := L(ctx); got != l {
		t.Fatalf("expected context logger back")
	}
}

func TestNewWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "responder.log")
	l := New(Options{Level: "info", File: path})
	l.Info("hello file")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected log file to contain entries")
	}
}

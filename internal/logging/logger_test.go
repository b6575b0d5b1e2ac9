package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"notepipe/internal/services"
)

func TestConsoleHandlerFormatsComponentAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger = NewComponentLogger(logger, "ledger")
	logger.Info("header written", String("path", "/tmp/a.md"), Int("keys", 4))

	line := buf.String()
	if !strings.Contains(line, "[ledger]") {
		t.Fatalf("expected component tag in %q", line)
	}
	if !strings.Contains(line, "header written") {
		t.Fatalf("expected message in %q", line)
	}
	if !strings.Contains(line, "path=/tmp/a.md") || !strings.Contains(line, "keys=4") {
		t.Fatalf("expected attrs in %q", line)
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger.Info("quiet")
	if buf.Len() != 0 {
		t.Fatalf("info should be suppressed at warn level, got %q", buf.String())
	}
	logger.Warn("loud")
	if !strings.Contains(buf.String(), "loud") {
		t.Fatalf("warn should pass, got %q", buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsCorrelationFields(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	ctx := services.WithRunID(context.Background(), "run-7")
	ctx = services.WithStage(ctx, "upload")

	WithContext(ctx, logger).Info("working")
	line := buf.String()
	if !strings.Contains(line, "run_id=run-7") || !strings.Contains(line, "stage=upload") {
		t.Fatalf("expected context fields in %q", line)
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := NewNop()
	logger.Error("should not panic or write")
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger should report disabled")
	}
}

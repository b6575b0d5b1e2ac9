package services

import (
	"context"
	"testing"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()

	ctx = WithRunID(ctx, "run-1")
	ctx = WithItemPath(ctx, "/tmp/a.md")
	ctx = WithStage(ctx, "analyze")

	if id, ok := RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("run id = %q, %v", id, ok)
	}
	if path, ok := ItemPathFromContext(ctx); !ok || path != "/tmp/a.md" {
		t.Fatalf("item path = %q, %v", path, ok)
	}
	if stage, ok := StageFromContext(ctx); !ok || stage != "analyze" {
		t.Fatalf("stage = %q, %v", stage, ok)
	}
}

func TestContextEmptyValuesIgnored(t *testing.T) {
	ctx := WithRunID(context.Background(), "")
	if _, ok := RunIDFromContext(ctx); ok {
		t.Fatal("empty run id should not be stored")
	}
	if _, ok := StageFromContext(context.Background()); ok {
		t.Fatal("missing stage should not be found")
	}
}

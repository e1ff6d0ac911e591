package context

import (
	"context"
	"testing"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "  req-1 ")
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Fatalf("expected req-1, got %q", got)
	}
}

func TestActorMissing(t *testing.T) {
	role, id := ActorFromContext(context.Background())
	if role != "" || id != "" {
		t.Fatalf("expected empty actor, got %q/%q", role, id)
	}
}

func TestActorRoundTrip(t *testing.T) {
	ctx := WithActor(context.Background(), "super_admin", "42")
	role, id := ActorFromContext(ctx)
	if role != "super_admin" || id != "42" {
		t.Fatalf("unexpected actor %q/%q", role, id)
	}
}

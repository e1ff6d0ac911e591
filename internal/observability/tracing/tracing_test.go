package tracing

import (
	"errors"
	"fmt"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsSensitiveKeys(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/lawyers/by-zip"),
		attribute.String("db.statement", "SELECT * FROM lawyers"),
		attribute.String("http.request.header.authorization", "Bearer x"),
	)
	if len(attrs) != 1 {
		t.Fatalf("expected 1 attribute, got %d", len(attrs))
	}
	if attrs[0].Key != "http.route" {
		t.Fatalf("expected http.route to be retained")
	}
}

func TestSafeErrorKeepsFirstLine(t *testing.T) {
	err := fmt.Errorf("assign markets: %w", errors.New("pq: connection refused\ndetail: host=db"))
	got := SafeError(err)
	if got == nil || got.Error() != "assign markets: pq: connection refused" {
		t.Fatalf("unexpected safe error %v", got)
	}
	if SafeError(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

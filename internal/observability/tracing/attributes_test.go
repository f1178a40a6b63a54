package tracing

import (
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsIdentityKeys(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/generations"),
		attribute.String("user_email", "alice@example.com"),
		attribute.String("x-admin-token", "secret"),
	)
	if len(attrs) != 1 {
		t.Fatalf("expected 1 attribute, got %d", len(attrs))
	}
	if attrs[0].Key != "http.route" {
		t.Fatalf("expected http.route to be retained, got %s", attrs[0].Key)
	}
}

func TestSafeErrorHidesMessage(t *testing.T) {
	err := SafeError(errors.New("dial tcp 10.0.0.1: connection refused"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if err.Error() != "*errors.errorString" {
		t.Fatalf("expected type-only error, got %q", err.Error())
	}
	if SafeError(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

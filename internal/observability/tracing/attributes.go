package tracing

import (
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// Identities are emails; none of these may reach a span.
var sensitiveAttributeKeys = []string{
	"email",
	"identity",
	"token",
	"authorization",
	"cookie",
}

func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	kept := attrs[:0:0]
	for _, attr := range attrs {
		if !isSensitiveKey(string(attr.Key)) {
			kept = append(kept, attr)
		}
	}
	return kept
}

// SafeError keeps only the error type.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%T", err)
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, needle := range sensitiveAttributeKeys {
		if strings.Contains(key, needle) {
			return true
		}
	}
	return false
}

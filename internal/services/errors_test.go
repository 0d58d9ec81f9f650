package services_test

import (
	"errors"
	"testing"

	"quill/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "statestore", "save", "history missing", nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker, got %v", err)
	}
	if got := services.Details(err); got != "statestore: save: history missing" {
		t.Fatalf("unexpected details: %q", got)
	}
}

func TestWrapNilMarkerDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "durable", "put", "", errors.New("boom"))
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		expect bool
	}{
		{"nil", nil, false},
		{"validation", services.Wrap(services.ErrValidation, "a", "b", "c", nil), false},
		{"configuration", services.Wrap(services.ErrConfiguration, "a", "b", "c", nil), false},
		{"unavailable", services.Wrap(services.ErrUnavailable, "a", "b", "c", nil), true},
		{"plain", errors.New("boom"), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.IsRetryable(tc.err); got != tc.expect {
				t.Fatalf("IsRetryable(%v) = %v, want %v", tc.err, got, tc.expect)
			}
		})
	}
}

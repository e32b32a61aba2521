package engine

import (
	"errors"
	"fmt"
	"testing"
)

func TestWithBackendModeAppliesAndRestores(t *testing.T) {
	var seen BackendMode
	err := withBackendMode(BackendSafeRun, func(mode BackendMode) error {
		seen = backendMode // lock already held by withBackendMode
		if mode != BackendSafeRun {
			t.Fatalf("callback received mode %s", mode)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != BackendSafeRun {
		t.Fatalf("override not applied, saw %s", seen)
	}
	if got := ActiveBackendMode(); got != BackendFastRun {
		t.Fatalf("mode not restored, got %s", got)
	}
}

func TestWithBackendModeRestoresOnError(t *testing.T) {
	wantErr := fmt.Errorf("chain blew up")
	err := withBackendMode(BackendSafeRun, func(BackendMode) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if got := ActiveBackendMode(); got != BackendFastRun {
		t.Fatalf("mode not restored after error, got %s", got)
	}
}

func TestWithBackendModeRejectsUnknownMode(t *testing.T) {
	called := false
	err := withBackendMode(BackendMode("metal"), func(BackendMode) error {
		called = true
		return nil
	})

	var backendErr *BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("expected BackendError, got %v", err)
	}
	if called {
		t.Fatalf("callback must not run under an unknown mode")
	}
}

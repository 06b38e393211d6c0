package refcycles

import (
	"errors"
	"testing"

	"github.com/cwbudde/refcycles/internal/cpu"
)

// skipIfLowPrecision skips tests that need a hardware cycle counter.
func skipIfLowPrecision(t *testing.T) {
	t.Helper()

	if !cpu.HighPrecision() {
		t.Skip("no hardware cycle counter on this platform")
	}
}

// mustPanicWith runs f and checks that it panics with an error wrapping want.
func mustPanicWith(t *testing.T, want error, f func()) {
	t.Helper()

	defer func() {
		t.Helper()

		r := recover()
		if r == nil {
			t.Fatalf("expected panic wrapping %v", want)
		}

		err, ok := r.(error)
		if !ok {
			t.Fatalf("panic value %v (%T) is not an error", r, r)
		}

		if !errors.Is(err, want) {
			t.Fatalf("panic %v does not wrap %v", err, want)
		}
	}()

	f()
}

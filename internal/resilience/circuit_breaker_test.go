package resilience

import (
	"errors"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream failure")

func TestCircuitBreaker_StateClosed(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, 1*time.Second)

	if cb.GetState() != StateClosed {
		t.Errorf("Expected initial state to be Closed, got %d", cb.GetState())
	}

	if err := cb.Call(func() error { return nil }); err != nil {
		t.Errorf("Expected no error in Closed state, got %v", err)
	}
}

func TestCircuitBreaker_OpenAfterFailures(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, 1*time.Second)

	fail := func() error { return errUpstream }

	cb.Call(fail)
	cb.Call(fail)
	if cb.GetState() != StateClosed {
		t.Error("Expected state to still be Closed after 2 failures")
	}

	cb.Call(fail)
	if cb.GetState() != StateOpen {
		t.Error("Expected state to be Open after 3 failures")
	}

	if err := cb.Call(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen in Open state, got %v", err)
	}
}

func TestCircuitBreaker_CloseAfterHalfOpenSuccesses(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, 50*time.Millisecond)

	fail := func() error { return errUpstream }
	cb.Call(fail)
	cb.Call(fail)
	cb.Call(fail)
	if cb.GetState() != StateOpen {
		t.Fatal("Expected circuit to be Open")
	}

	time.Sleep(80 * time.Millisecond)

	for i := 0; i < halfOpenProbes; i++ {
		if err := cb.Call(func() error { return nil }); err != nil {
			t.Fatalf("Expected probe %d to be admitted, got %v", i, err)
		}
	}

	if cb.GetState() != StateClosed {
		t.Errorf("Expected state to be Closed after probe successes, got %d", cb.GetState())
	}
}

func TestCircuitBreaker_ReopenAfterHalfOpenFailure(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, 50*time.Millisecond)

	fail := func() error { return errUpstream }
	cb.Call(fail)
	cb.Call(fail)
	cb.Call(fail)

	time.Sleep(80 * time.Millisecond)

	cb.Call(fail)
	if cb.GetState() != StateOpen {
		t.Error("Expected state to be Open after failure in HalfOpen")
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, 1*time.Second)

	fail := func() error { return errUpstream }
	cb.Call(fail)
	cb.Call(fail)
	cb.Call(func() error { return nil })
	cb.Call(fail)
	cb.Call(fail)

	if cb.GetState() != StateClosed {
		t.Error("Expected circuit to stay Closed when failures are not consecutive")
	}
}

package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCallOpensAfterConsecutiveFailures(t *testing.T) {
	var transitions []State
	cfg := DefaultConfig("postgres")
	cfg.FailureThreshold = 2
	cfg.Timeout = time.Hour
	cfg.OnStateChange = func(_ string, to State) { transitions = append(transitions, to) }

	cb, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	down := errors.New("connection refused")
	for range 2 {
		if _, err := Call(context.Background(), cb, func(context.Context) (int, error) { return 0, down }); !errors.Is(err, down) {
			t.Fatalf("got %v, want dependency error", err)
		}
	}
	if !cb.IsOpen() {
		t.Fatalf("state = %s, want open", cb.GetState())
	}

	ran := false
	_, err = Call(context.Background(), cb, func(context.Context) (int, error) { ran = true; return 1, nil })
	if !errors.Is(err, ErrOpen) || ran {
		t.Errorf("open circuit: err=%v ran=%v", err, ran)
	}
	if len(transitions) != 1 || transitions[0] != StateOpen {
		t.Errorf("transitions = %v", transitions)
	}
	if StateOpen.Value() != 2 || StateClosed.Value() != 0 {
		t.Error("state values")
	}
}

func TestCallReturnsTypedValue(t *testing.T) {
	cb, _ := New(DefaultConfig("redpanda"), nil)
	n, err := Call(context.Background(), cb, func(context.Context) (int, error) { return 42, nil })
	if err != nil || n != 42 {
		t.Errorf("got %d, %v", n, err)
	}
	if err := cb.Execute(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Errorf("Execute: %v", err)
	}
}

func TestCanceledCallsDoNotTrip(t *testing.T) {
	cfg := DefaultConfig("postgres")
	cfg.FailureThreshold = 1
	cb, _ := New(cfg, nil)
	for range 3 {
		_ = cb.Execute(context.Background(), func(context.Context) error { return context.Canceled })
	}
	if cb.IsOpen() {
		t.Error("canceled calls opened the circuit")
	}
}

func TestManager(t *testing.T) {
	var notified []string
	m := NewManager(nil, func(name string, _ State) { notified = append(notified, name) })

	a, err := m.GetOrCreate("postgres", DefaultConfig(""))
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	b, _ := m.GetOrCreate("postgres", DefaultConfig(""))
	if a != b {
		t.Error("GetOrCreate returned a second breaker")
	}

	cfg := DefaultConfig("")
	cfg.FailureThreshold = 1
	r, _ := m.GetOrCreate("redpanda", cfg)
	_ = r.Execute(context.Background(), func(context.Context) error { return errors.New("broker down") })

	st := m.HealthStatus()
	if len(st) != 2 || st[0].Name != "postgres" || st[1].Healthy {
		t.Errorf("status = %+v", st)
	}
	if m.Healthy() {
		t.Error("manager should be unhealthy with an open breaker")
	}
	if len(notified) != 1 || notified[0] != "redpanda" {
		t.Errorf("notified = %v", notified)
	}
}

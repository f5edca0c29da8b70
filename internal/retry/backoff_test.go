package retry

import (
	"context"
	"testing"
	"time"
)

func TestBackoff_Doubles(t *testing.T) {
	b := &Backoff{
		InitialDelay: 5 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}

	want := []time.Duration{
		5 * time.Millisecond,
		10 * time.Millisecond,
		20 * time.Millisecond,
		40 * time.Millisecond,
	}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Errorf("attempt %d: got %v, want %v", i+1, got, w)
		}
	}
}

func TestBackoff_Cap(t *testing.T) {
	b := &Backoff{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     300 * time.Millisecond,
		Multiplier:   2.0,
	}
	for i := 0; i < 10; i++ {
		b.Next()
	}
	if got := b.Next(); got != 300*time.Millisecond {
		t.Errorf("expected delay capped at 300ms, got %v", got)
	}
}

func TestBackoff_Reset(t *testing.T) {
	b := DefaultBackoff()
	b.Next()
	b.Next()
	b.Reset()

	if got := b.Next(); got != b.InitialDelay {
		t.Errorf("after reset got %v, want %v", got, b.InitialDelay)
	}
}

func TestBackoff_ZeroValueDefaults(t *testing.T) {
	var b Backoff
	if got := b.Next(); got != 5*time.Millisecond {
		t.Errorf("zero-value first delay = %v, want 5ms", got)
	}
}

func TestBackoff_WaitCancelled(t *testing.T) {
	b := &Backoff{InitialDelay: time.Hour, MaxDelay: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := b.Wait(ctx); err == nil {
		t.Fatal("expected context error")
	}
	if time.Since(start) > time.Second {
		t.Error("Wait should return promptly on a cancelled context")
	}
}

func TestBackoff_Wait(t *testing.T) {
	b := &Backoff{InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}
	if err := b.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDefaultBackoff_Schedule(t *testing.T) {
	b := DefaultBackoff()
	var last time.Duration
	for i := 0; i < 12; i++ {
		last = b.Next()
	}
	if last != time.Second {
		t.Errorf("default schedule capped at %v, want 1s", last)
	}
	b.Reset()
	if got := b.Next(); got != 5*time.Millisecond {
		t.Errorf("default first delay = %v, want 5ms", got)
	}
}

package domain

import (
	"errors"
	"testing"
	"time"
)

func TestPauseLedger_Elapsed(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ledger := NewPauseLedger(start)

	tests := []struct {
		name string
		at   time.Duration
		want time.Duration
	}{
		{name: "at start", at: 0, want: 0},
		{name: "after 10s", at: 10 * time.Second, want: 10 * time.Second},
		{name: "after 5m", at: 5 * time.Minute, want: 5 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ledger.Elapsed(start.Add(tt.at))
			if got != tt.want {
				t.Errorf("Elapsed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPauseLedger_ElapsedClampsNegative(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ledger := NewPauseLedger(start)

	// Clock skew: now before start must clamp to zero, not go negative.
	if got := ledger.Elapsed(start.Add(-3 * time.Second)); got != 0 {
		t.Errorf("Elapsed() = %v, want 0", got)
	}
}

func TestPauseLedger_PauseResumeRoundTrip(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ledger := NewPauseLedger(start)

	// Pause at t=10, resume at t=15: exactly 5s of pause accumulates.
	ledger, err := ledger.Pause(start.Add(10 * time.Second))
	if err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if !ledger.IsPaused() {
		t.Fatal("expected ledger to be paused")
	}

	ledger, err = ledger.Resume(start.Add(15 * time.Second))
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if ledger.IsPaused() {
		t.Fatal("expected pausedAt to be cleared after resume")
	}
	if ledger.AccumulatedPause != 5*time.Second {
		t.Errorf("AccumulatedPause = %v, want 5s", ledger.AccumulatedPause)
	}

	// At t=20, elapsed playing time is 20 - 5 = 15s.
	if got := ledger.Elapsed(start.Add(20 * time.Second)); got != 15*time.Second {
		t.Errorf("Elapsed() = %v, want 15s", got)
	}
}

func TestPauseLedger_ElapsedFrozenWhilePaused(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ledger := NewPauseLedger(start)

	ledger, _ = ledger.Pause(start.Add(10 * time.Second))

	// Elapsed stays constant for the whole paused interval.
	for _, at := range []time.Duration{10 * time.Second, 30 * time.Second, time.Hour} {
		if got := ledger.Elapsed(start.Add(at)); got != 10*time.Second {
			t.Errorf("Elapsed() at +%v = %v, want 10s", at, got)
		}
	}
}

func TestPauseLedger_ElapsedMonotonicWhilePlaying(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ledger := NewPauseLedger(start)

	prev := time.Duration(-1)
	for at := time.Duration(0); at <= 10*time.Second; at += time.Second {
		got := ledger.Elapsed(start.Add(at))
		if got < prev {
			t.Fatalf("Elapsed() decreased from %v to %v at +%v", prev, got, at)
		}
		prev = got
	}
}

func TestPauseLedger_DoublePause(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ledger := NewPauseLedger(start)

	ledger, _ = ledger.Pause(start.Add(time.Second))
	_, err := ledger.Pause(start.Add(2 * time.Second))
	if !errors.Is(err, ErrAlreadyPaused) {
		t.Errorf("second Pause() error = %v, want ErrAlreadyPaused", err)
	}
}

func TestPauseLedger_ResumeWithoutPause(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ledger := NewPauseLedger(start)

	_, err := ledger.Resume(start.Add(time.Second))
	if !errors.Is(err, ErrNotPaused) {
		t.Errorf("Resume() error = %v, want ErrNotPaused", err)
	}
}

func TestPauseLedger_PauseNeverExceedsWallClock(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ledger := NewPauseLedger(start)

	// Two pause/resume cycles.
	ledger, _ = ledger.Pause(start.Add(2 * time.Second))
	ledger, _ = ledger.Resume(start.Add(4 * time.Second))
	ledger, _ = ledger.Pause(start.Add(6 * time.Second))
	ledger, _ = ledger.Resume(start.Add(9 * time.Second))

	now := start.Add(10 * time.Second)
	if ledger.AccumulatedPause > now.Sub(ledger.StartedAt) {
		t.Errorf("AccumulatedPause %v exceeds wall clock %v",
			ledger.AccumulatedPause, now.Sub(ledger.StartedAt))
	}
	if got := ledger.Elapsed(now); got != 5*time.Second {
		t.Errorf("Elapsed() = %v, want 5s", got)
	}
}

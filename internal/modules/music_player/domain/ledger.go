package domain

import (
	"errors"
	"time"
)

// Pause ledger errors.
var (
	// ErrAlreadyPaused is returned when pausing a ledger that is paused.
	ErrAlreadyPaused = errors.New("already paused")

	// ErrNotPaused is returned when resuming a ledger that is not paused.
	ErrNotPaused = errors.New("not paused")
)

// PauseLedger accounts for elapsed playing time of the current track.
// Accumulated pause time only grows, on resume; PausedAt is set only while
// paused and cleared exactly on resume. All operations are pure: they
// return a new ledger and never mutate the receiver.
type PauseLedger struct {
	StartedAt       time.Time
	PausedAt        time.Time // zero while playing
	AccumulatedPause time.Duration
}

// NewPauseLedger creates a ledger for a track that started playing at now.
func NewPauseLedger(now time.Time) PauseLedger {
	return PauseLedger{StartedAt: now}
}

// IsPaused reports whether the ledger is currently in a paused interval.
func (l PauseLedger) IsPaused() bool {
	return !l.PausedAt.IsZero()
}

// Elapsed returns the accumulated playing time at now: wall-clock time since
// start minus all pause time, frozen at the pause instant while paused.
// Clock skew that would produce a negative value is clamped to zero.
func (l PauseLedger) Elapsed(now time.Time) time.Duration {
	end := now
	if l.IsPaused() {
		end = l.PausedAt
	}
	elapsed := end.Sub(l.StartedAt) - l.AccumulatedPause
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// Pause marks the ledger paused at now. Returns ErrAlreadyPaused if a pause
// interval is already open.
func (l PauseLedger) Pause(now time.Time) (PauseLedger, error) {
	if l.IsPaused() {
		return l, ErrAlreadyPaused
	}
	l.PausedAt = now
	return l, nil
}

// Resume closes the open pause interval at now, folding its length into the
// accumulated pause time. Returns ErrNotPaused if no interval is open.
func (l PauseLedger) Resume(now time.Time) (PauseLedger, error) {
	if !l.IsPaused() {
		return l, ErrNotPaused
	}
	pause := now.Sub(l.PausedAt)
	if pause > 0 {
		l.AccumulatedPause += pause
	}
	l.PausedAt = time.Time{}
	return l, nil
}

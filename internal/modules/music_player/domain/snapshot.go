package domain

import (
	"strings"
	"time"
)

// QueuePreviewSize is how many pending entries a snapshot carries.
const QueuePreviewSize = 5

// SessionView is a consistent point-in-time copy of the snapshot-relevant
// session fields. The session produces it under its own lock; BuildSnapshot
// is a pure function of the view.
type SessionView struct {
	State   SessionState
	Current *Track
	Ledger  PauseLedger
	Pending []TrackReference
}

// StatusSnapshot is a read-only status projection for display. It carries no
// rendering decisions beyond label formatting; any front end can turn it
// into an embed, a terminal line, or an HTTP response.
type StatusSnapshot struct {
	State        SessionState
	Title        string
	IsPlaying    bool
	HasProgress  bool    // false for live/unknown-duration tracks
	Progress     float64 // in [0, 1], meaningful only if HasProgress
	Elapsed      time.Duration
	ElapsedLabel string
	TotalLabel   string
	ThumbnailURL string
	QueuePreview []string // labels of the first pending references
	QueueRemaining int    // pending entries beyond the preview
}

// BuildSnapshot derives a StatusSnapshot from a session view at now.
func BuildSnapshot(view SessionView, now time.Time) StatusSnapshot {
	snap := StatusSnapshot{
		State:     view.State,
		IsPlaying: view.State == StatePlaying,
	}

	for _, ref := range view.Pending[:min(len(view.Pending), QueuePreviewSize)] {
		snap.QueuePreview = append(snap.QueuePreview, ref.DisplayLabel())
	}
	if extra := len(view.Pending) - QueuePreviewSize; extra > 0 {
		snap.QueueRemaining = extra
	}

	if view.Current == nil {
		return snap
	}

	snap.Title = view.Current.Title
	snap.ThumbnailURL = view.Current.ArtworkURL
	snap.Elapsed = view.Ledger.Elapsed(now)
	snap.ElapsedLabel = FormatClock(snap.Elapsed)
	snap.TotalLabel = view.Current.FormattedDuration()

	if view.Current.HasKnownDuration() {
		snap.HasProgress = true
		snap.Progress = float64(snap.Elapsed) / float64(view.Current.Duration)
		if snap.Progress > 1 {
			snap.Progress = 1
		}
	}

	return snap
}

// ProgressBar renders the snapshot's progress as a fixed-width bar with a
// playhead marker. Tracks without a known duration get an indeterminate bar.
func (s StatusSnapshot) ProgressBar(width int) string {
	if width <= 0 {
		width = 20
	}
	if !s.HasProgress {
		return strings.Repeat("┈", width)
	}
	position := int(s.Progress * float64(width))
	if position >= width {
		position = width - 1
	}
	return strings.Repeat("━", position) + "⚪" + strings.Repeat("┈", width-position-1)
}

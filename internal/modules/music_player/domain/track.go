package domain

import (
	"strconv"
	"time"
)

// Track is a fully resolved, playable track.
type Track struct {
	Encoded    string // opaque playable source handle understood by the driver
	Title      string
	Artist     string
	Duration   time.Duration // 0 means unknown duration or live stream
	URI        string
	ArtworkURL string
	SourceName string // e.g. "youtube", "soundcloud"
	IsStream   bool
}

// IsValid returns true if the track has the minimum required fields.
func (t *Track) IsValid() bool {
	return t.Encoded != "" && t.Title != ""
}

// HasKnownDuration reports whether progress against a total duration can be
// computed for this track.
func (t *Track) HasKnownDuration() bool {
	return !t.IsStream && t.Duration > 0
}

// FormattedDuration returns the duration as a human-readable string
// (mm:ss or hh:mm:ss), or "LIVE" for streams.
func (t *Track) FormattedDuration() string {
	if !t.HasKnownDuration() {
		return "LIVE"
	}
	return FormatClock(t.Duration)
}

// FormatClock renders a duration as mm:ss, or hh:mm:ss past the hour mark.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	totalSeconds := int(d.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return pad(hours) + ":" + pad(minutes) + ":" + pad(seconds)
	}
	return pad(minutes) + ":" + pad(seconds)
}

func pad(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

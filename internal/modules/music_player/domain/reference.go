package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TrackReference is an unresolved request for a playable item: either a
// direct URL or free-form search text supplied by a user. The raw query is
// immutable once enqueued; the ID gives each enqueue its own identity so
// that stale resolutions and late completion signals can be told apart from
// the reference currently being played.
type TrackReference struct {
	ID         string
	Raw        string
	EnqueuedAt time.Time
}

// NewTrackReference creates a TrackReference for the given raw query.
func NewTrackReference(raw string) TrackReference {
	return TrackReference{
		ID:         uuid.NewString(),
		Raw:        strings.TrimSpace(raw),
		EnqueuedAt: time.Now().UTC(),
	}
}

// LooksLikeURL reports whether raw is a direct URL rather than a search
// phrase. Scheme-less "www." links count; users paste them and the
// extractor accepts them.
func LooksLikeURL(raw string) bool {
	return strings.HasPrefix(raw, "http://") ||
		strings.HasPrefix(raw, "https://") ||
		strings.HasPrefix(raw, "www.")
}

// IsURL reports whether the reference looks like a direct URL rather than
// a search phrase.
func (r TrackReference) IsURL() bool {
	return LooksLikeURL(r.Raw)
}

// DisplayLabel returns a short label for queue previews. Unresolved
// references only have their raw query to show.
func (r TrackReference) DisplayLabel() string {
	const maxLen = 80
	if len(r.Raw) > maxLen {
		return r.Raw[:maxLen-1] + "…"
	}
	return r.Raw
}

package ports

import (
	"context"
	"time"
)

// TrackExtractor performs a single extraction attempt against the media
// backend. Retry policy lives above this port, in the application resolver,
// so every attempt sees a fresh request with no state carried over from a
// previous failure.
type TrackExtractor interface {
	// Load resolves a query (direct URL, "ytsearch:..." phrase, or playlist
	// URL) into zero or more tracks.
	Load(ctx context.Context, query string) (*LoadResult, error)
}

// LoadResult represents the result of one extraction attempt.
type LoadResult struct {
	Type         LoadType
	Tracks       []*TrackInfo
	PlaylistName string
}

// LoadType represents the shape of a load result.
type LoadType string

const (
	LoadTypeTrack    LoadType = "track"
	LoadTypePlaylist LoadType = "playlist"
	LoadTypeSearch   LoadType = "search"
	LoadTypeEmpty    LoadType = "empty"
	LoadTypeError    LoadType = "error"
)

// Usable reports whether the result carries at least one track. Empty and
// error results are retryable failures, not successes.
func (r *LoadResult) Usable() bool {
	if r == nil {
		return false
	}
	switch r.Type {
	case LoadTypeEmpty, LoadTypeError:
		return false
	}
	return len(r.Tracks) > 0
}

// TrackInfo contains information about one extracted track.
type TrackInfo struct {
	Encoded    string
	Title      string
	Artist     string
	Duration   time.Duration
	URI        string
	ArtworkURL string
	SourceName string
	IsStream   bool
}

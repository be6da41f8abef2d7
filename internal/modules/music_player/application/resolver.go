package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jukebot/jukebot/internal/modules/music_player/application/ports"
	"github.com/jukebot/jukebot/internal/modules/music_player/domain"
)

const (
	// DefaultResolveAttempts is how many extraction attempts a single
	// resolution gets before it is a terminal failure.
	DefaultResolveAttempts = 3

	// DefaultResolveBackoff is the fixed wait between attempts.
	DefaultResolveBackoff = time.Second

	// MaxPlaylistItems caps playlist expansion.
	MaxPlaylistItems = 50

	// DefaultSearchSource is the search prefix for bare queries.
	DefaultSearchSource = "ytsearch"
)

// Resolver turns track references into playable tracks. It wraps a
// TrackExtractor with the retry policy: bounded attempts, fixed backoff,
// and a fresh extraction request per attempt. It holds no session state;
// callers decide what to do with results.
type Resolver struct {
	extractor ports.TrackExtractor
	attempts  int
	backoff   time.Duration
	source    string
}

// NewResolver creates a Resolver with the default retry policy.
func NewResolver(extractor ports.TrackExtractor) *Resolver {
	return &Resolver{
		extractor: extractor,
		attempts:  DefaultResolveAttempts,
		backoff:   DefaultResolveBackoff,
		source:    DefaultSearchSource,
	}
}

// WithSearchSource returns a copy of the resolver using the given search
// prefix for bare queries.
func (r *Resolver) WithSearchSource(source string) *Resolver {
	if source == "" {
		return r
	}
	copied := *r
	copied.source = source
	return &copied
}

// searchQuery formats a raw query for the extractor: direct URLs pass
// through, bare phrases get the search prefix.
func (r *Resolver) searchQuery(raw string) string {
	raw = strings.TrimSpace(raw)
	if domain.LooksLikeURL(raw) {
		return raw
	}
	return r.source + ":" + raw
}

// Resolve resolves a query to a single playable track, retrying transient
// failures. An attempt that returns no usable result counts as a retryable
// failure, not success. Cancelling ctx aborts the retry loop between
// attempts and inside the extractor.
func (r *Resolver) Resolve(ctx context.Context, query string) (*domain.Track, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	lastErr := errors.New("no usable result")
	for attempt := 1; attempt <= r.attempts; attempt++ {
		if attempt > 1 {
			slog.Debug("retrying resolution", "query", query, "attempt", attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.backoff):
			}
		}

		result, err := r.extractor.Load(ctx, r.searchQuery(query))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		if !result.Usable() {
			lastErr = ErrNoResults
			continue
		}

		track := trackFromInfo(result.Tracks[0])
		if !track.IsValid() {
			lastErr = errors.New("malformed track metadata")
			continue
		}
		return track, nil
	}

	return nil, &ResolutionError{Query: query, Attempts: r.attempts, Err: lastErr}
}

// ResolveCandidates resolves a search phrase to at most n candidate tracks
// for an explicit pick-one flow. No retries: this backs interactive
// autocomplete, where a stale answer is worse than none. No side effects
// on any queue.
func (r *Resolver) ResolveCandidates(ctx context.Context, query string, n int) ([]*domain.Track, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	result, err := r.extractor.Load(ctx, r.searchQuery(query))
	if err != nil {
		return nil, err
	}
	if !result.Usable() {
		return nil, ErrNoResults
	}

	if n <= 0 || n > len(result.Tracks) {
		n = len(result.Tracks)
	}
	tracks := make([]*domain.Track, 0, n)
	for _, info := range result.Tracks[:n] {
		tracks = append(tracks, trackFromInfo(info))
	}
	return tracks, nil
}

// ResolvePlaylist expands a playlist URL into track references, capped at
// MaxPlaylistItems. Entries without a usable URI are skipped rather than
// failing the whole expansion. The references are unresolved on purpose:
// each one goes through Resolve individually when its turn comes.
func (r *Resolver) ResolvePlaylist(ctx context.Context, url string) ([]domain.TrackReference, error) {
	result, err := r.loadWithRetry(ctx, url)
	if err != nil {
		return nil, err
	}
	if result.Type != ports.LoadTypePlaylist || len(result.Tracks) == 0 {
		return nil, ErrEmptyPlaylist
	}

	refs := make([]domain.TrackReference, 0, min(len(result.Tracks), MaxPlaylistItems))
	for _, info := range result.Tracks {
		if len(refs) >= MaxPlaylistItems {
			break
		}
		if info.URI == "" {
			slog.Debug("skipping playlist entry without URI", "title", info.Title)
			continue
		}
		refs = append(refs, domain.NewTrackReference(info.URI))
	}
	if len(refs) == 0 {
		return nil, ErrEmptyPlaylist
	}
	return refs, nil
}

// loadWithRetry applies the same attempt/backoff policy as Resolve to a
// raw extractor query.
func (r *Resolver) loadWithRetry(ctx context.Context, query string) (*ports.LoadResult, error) {
	lastErr := errors.New("no usable result")
	for attempt := 1; attempt <= r.attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.backoff):
			}
		}

		result, err := r.extractor.Load(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		if !result.Usable() {
			lastErr = ErrNoResults
			continue
		}
		return result, nil
	}
	return nil, &ResolutionError{Query: query, Attempts: r.attempts, Err: lastErr}
}

func trackFromInfo(info *ports.TrackInfo) *domain.Track {
	return &domain.Track{
		Encoded:    info.Encoded,
		Title:      info.Title,
		Artist:     info.Artist,
		Duration:   info.Duration,
		URI:        info.URI,
		ArtworkURL: info.ArtworkURL,
		SourceName: info.SourceName,
		IsStream:   info.IsStream,
	}
}

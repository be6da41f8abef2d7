package domain

import (
	"github.com/disgoorg/snowflake/v2"
)

// TrackEndReason represents why a track ended.
type TrackEndReason string

const (
	// TrackEndFinished means the track reached its natural end of stream.
	TrackEndFinished TrackEndReason = "finished"
	// TrackEndFailed means the playback device failed mid-track.
	TrackEndFailed TrackEndReason = "failed"
	// TrackEndStopped means playback was stopped deliberately (skip).
	TrackEndStopped TrackEndReason = "stopped"
	// TrackEndReplaced means the track was replaced by another start.
	TrackEndReplaced TrackEndReason = "replaced"
	// TrackEndCleanup means the player was torn down.
	TrackEndCleanup TrackEndReason = "cleanup"
)

// ShouldAdvance returns true if this end reason should pull the next queue
// item. Driver failures advance exactly like natural completion; a replaced
// track already has a successor and cleanup means the session is going away.
func (r TrackEndReason) ShouldAdvance() bool {
	return r == TrackEndFinished || r == TrackEndFailed || r == TrackEndStopped
}

// TrackEndedEvent is the completion signal from the playback driver.
// ReferenceID identifies which enqueued reference the ended track belonged
// to, so late or duplicate signals for a track that is no longer current
// can be discarded.
type TrackEndedEvent struct {
	GuildID     snowflake.ID
	ReferenceID string
	Reason      TrackEndReason
	Err         error // non-nil for TrackEndFailed, diagnostics only
}

// PlaybackStartedEvent is published when a resolved track starts playing.
type PlaybackStartedEvent struct {
	GuildID     snowflake.ID
	ReferenceID string
	Track       *Track
}

// ResolutionFailedEvent is published when a queue reference exhausted the
// resolver's retries and was dropped. Informational, never fatal.
type ResolutionFailedEvent struct {
	GuildID   snowflake.ID
	Reference TrackReference
	Err       error
}

// SessionIdleEvent is published when a session returns to idle with an
// empty queue, either by running dry or by an explicit stop.
type SessionIdleEvent struct {
	GuildID snowflake.ID
}

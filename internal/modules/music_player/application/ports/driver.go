package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/jukebot/jukebot/internal/modules/music_player/domain"
)

// PlaybackDriver is the external audio output device. The driver reports
// track completion exactly once per Start, through the completion bridge,
// on natural end of stream as well as on stop or failure.
type PlaybackDriver interface {
	// Start begins playback of a resolved track. The reference identifies
	// which enqueued request the track belongs to; the driver echoes it in
	// the completion signal.
	Start(ctx context.Context, guildID snowflake.ID, ref domain.TrackReference, track *domain.Track) error

	// Stop stops the current playback.
	Stop(ctx context.Context, guildID snowflake.ID) error

	// Pause pauses the current playback.
	Pause(ctx context.Context, guildID snowflake.ID) error

	// Resume resumes the paused playback.
	Resume(ctx context.Context, guildID snowflake.ID) error

	// IsActive reports whether the driver currently holds a track for the
	// guild (playing or paused).
	IsActive(guildID snowflake.ID) bool
}

package ports

import (
	"context"

	"github.com/jukebot/jukebot/internal/modules/music_player/domain"
)

// EventPublisher publishes session events onto the asynchronous bus.
// Publishing must never block the caller; it is safe to call from any
// goroutine, including the driver's own callback context.
type EventPublisher interface {
	PublishTrackEnded(event domain.TrackEndedEvent)
	PublishPlaybackStarted(event domain.PlaybackStartedEvent)
	PublishResolutionFailed(event domain.ResolutionFailedEvent)
	PublishSessionIdle(event domain.SessionIdleEvent)
}

// EventSubscriber registers handlers for session events. Handlers for one
// event type run on a single dispatcher goroutine, so events of that type
// are delivered in publish order.
type EventSubscriber interface {
	OnTrackEnded(handler func(context.Context, domain.TrackEndedEvent))
	OnPlaybackStarted(handler func(context.Context, domain.PlaybackStartedEvent))
	OnResolutionFailed(handler func(context.Context, domain.ResolutionFailedEvent))
	OnSessionIdle(handler func(context.Context, domain.SessionIdleEvent))
}

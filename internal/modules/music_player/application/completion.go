package application

import (
	"context"
	"log/slog"

	"github.com/disgoorg/snowflake/v2"
	"github.com/jukebot/jukebot/internal/modules/music_player/application/ports"
	"github.com/jukebot/jukebot/internal/modules/music_player/domain"
)

// CompletionBridge carries track-end signals from the playback driver's
// callback context onto the event bus and into the owning session. The
// driver calls NotifyFinished from whatever goroutine delivers its
// events; the bus's single dispatcher then applies them to sessions in
// publish order.
type CompletionBridge struct {
	registry  *SessionRegistry
	publisher ports.EventPublisher
}

// NewCompletionBridge creates a bridge over the given registry and bus.
func NewCompletionBridge(registry *SessionRegistry, publisher ports.EventPublisher) *CompletionBridge {
	return &CompletionBridge{
		registry:  registry,
		publisher: publisher,
	}
}

// NotifyFinished publishes a completion signal. Never blocks.
func (b *CompletionBridge) NotifyFinished(guildID snowflake.ID, referenceID string, reason domain.TrackEndReason, err error) {
	slog.Debug("track end signal",
		"guild", guildID,
		"reference", referenceID,
		"reason", reason,
	)
	b.publisher.PublishTrackEnded(domain.TrackEndedEvent{
		GuildID:     guildID,
		ReferenceID: referenceID,
		Reason:      reason,
		Err:         err,
	})
}

// Bind subscribes the bridge's delivery handler on the bus. Signals for
// guilds without a session are dropped.
func (b *CompletionBridge) Bind(subscriber ports.EventSubscriber) {
	subscriber.OnTrackEnded(func(_ context.Context, event domain.TrackEndedEvent) {
		session := b.registry.Get(event.GuildID)
		if session == nil {
			slog.Debug("dropping track end for unknown session", "guild", event.GuildID)
			return
		}
		session.HandleTrackEnd(event)
	})
}

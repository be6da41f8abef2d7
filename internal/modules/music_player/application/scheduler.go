package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/jukebot/jukebot/internal/modules/music_player/application/ports"
	"github.com/jukebot/jukebot/internal/modules/music_player/domain"
)

// DefaultSnapshotInterval is how often the ticker refreshes player
// messages. Discord edits are rate limited per channel, so the interval
// trades display latency against API pressure.
const DefaultSnapshotInterval = 5 * time.Second

// SnapshotTicker periodically pushes status snapshots of every active
// session to the notification surface. Idle sessions get their player
// message cleared instead.
type SnapshotTicker struct {
	registry *SessionRegistry
	notifier ports.NotificationSender
	interval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSnapshotTicker creates a stopped ticker. A non-positive interval
// falls back to the default.
func NewSnapshotTicker(registry *SessionRegistry, notifier ports.NotificationSender, interval time.Duration) *SnapshotTicker {
	if interval <= 0 {
		interval = DefaultSnapshotInterval
	}
	return &SnapshotTicker{
		registry: registry,
		notifier: notifier,
		interval: interval,
	}
}

// Start launches the tick loop. Must not be called twice without an
// intervening Stop.
func (t *SnapshotTicker) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.done = make(chan struct{})

	go func() {
		defer close(t.done)
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.tick()
			}
		}
	}()
}

// Stop halts the loop and waits for the in-flight tick to finish.
func (t *SnapshotTicker) Stop() {
	if t.cancel == nil {
		return
	}
	t.cancel()
	<-t.done
	t.cancel = nil
}

func (t *SnapshotTicker) tick() {
	now := time.Now()
	for _, session := range t.registry.Sessions() {
		snap := session.Snapshot(now)
		guildID := session.GuildID()

		if snap.State == domain.StateIdle {
			if err := t.notifier.ClearPlayer(guildID); err != nil {
				slog.Warn("failed to clear player message", "guild", guildID, "error", err)
			}
			continue
		}

		channelID := session.NotificationChannelID()
		if err := t.notifier.UpdatePlayer(guildID, channelID, snap); err != nil {
			slog.Warn("failed to update player message", "guild", guildID, "error", err)
		}
	}
}

package music_player

import (
	"context"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/jukebot/jukebot/internal/modules/music_player/application"
	"github.com/jukebot/jukebot/internal/modules/music_player/application/ports"
	"github.com/jukebot/jukebot/internal/modules/music_player/domain"
)

type noopExtractor struct{}

func (noopExtractor) Load(context.Context, string) (*ports.LoadResult, error) {
	return &ports.LoadResult{Type: ports.LoadTypeEmpty}, nil
}

type noopDriver struct{}

func (noopDriver) Start(context.Context, snowflake.ID, domain.TrackReference, *domain.Track) error {
	return nil
}
func (noopDriver) Stop(context.Context, snowflake.ID) error   { return nil }
func (noopDriver) Pause(context.Context, snowflake.ID) error  { return nil }
func (noopDriver) Resume(context.Context, snowflake.ID) error { return nil }
func (noopDriver) IsActive(snowflake.ID) bool                 { return false }

type noopPublisher struct{}

func (noopPublisher) PublishTrackEnded(domain.TrackEndedEvent)             {}
func (noopPublisher) PublishPlaybackStarted(domain.PlaybackStartedEvent)   {}
func (noopPublisher) PublishResolutionFailed(domain.ResolutionFailedEvent) {}
func (noopPublisher) PublishSessionIdle(domain.SessionIdleEvent)           {}

type recordingNotifier struct {
	mu      sync.Mutex
	cleared []snowflake.ID
}

func (n *recordingNotifier) UpdatePlayer(snowflake.ID, snowflake.ID, domain.StatusSnapshot) error {
	return nil
}

func (n *recordingNotifier) ClearPlayer(guildID snowflake.ID) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cleared = append(n.cleared, guildID)
	return nil
}

func (n *recordingNotifier) SendNotice(snowflake.ID, string) error { return nil }

func (n *recordingNotifier) clearedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.cleared)
}

func newVoiceDisconnectFixture(t *testing.T) (*MusicPlayerModule, *discordgo.Session, *recordingNotifier) {
	t.Helper()
	notifier := &recordingNotifier{}
	registry := application.NewSessionRegistry(
		application.NewResolver(noopExtractor{}),
		noopDriver{},
		noopPublisher{},
	)
	m := &MusicPlayerModule{registry: registry, notifier: notifier}

	discord := &discordgo.Session{State: discordgo.NewState()}
	discord.State.User = &discordgo.User{ID: "900"}
	return m, discord, notifier
}

func TestVoiceDisconnectTearsDownSession(t *testing.T) {
	m, discord, notifier := newVoiceDisconnectFixture(t)
	guildID := snowflake.ID(100)
	m.registry.GetOrCreate(guildID, snowflake.ID(200))

	m.handleBotVoiceDisconnect(discord, &discordgo.VoiceStateUpdate{
		VoiceState: &discordgo.VoiceState{
			UserID:    "900",
			GuildID:   "100",
			ChannelID: "",
		},
	})

	if m.registry.Get(guildID) != nil {
		t.Error("expected the session to be removed after the bot was disconnected")
	}
	if notifier.clearedCount() != 1 {
		t.Errorf("expected 1 player message clear, got %d", notifier.clearedCount())
	}
}

func TestVoiceDisconnectIgnoresOtherUpdates(t *testing.T) {
	m, discord, notifier := newVoiceDisconnectFixture(t)
	guildID := snowflake.ID(100)
	m.registry.GetOrCreate(guildID, snowflake.ID(200))
	defer m.registry.Remove(guildID)

	// another member leaving voice
	m.handleBotVoiceDisconnect(discord, &discordgo.VoiceStateUpdate{
		VoiceState: &discordgo.VoiceState{
			UserID:    "901",
			GuildID:   "100",
			ChannelID: "",
		},
	})
	// the bot moving between channels
	m.handleBotVoiceDisconnect(discord, &discordgo.VoiceStateUpdate{
		VoiceState: &discordgo.VoiceState{
			UserID:    "900",
			GuildID:   "100",
			ChannelID: "300",
		},
	})

	if m.registry.Get(guildID) == nil {
		t.Error("expected the session to survive unrelated voice updates")
	}
	if notifier.clearedCount() != 0 {
		t.Errorf("expected no player message clears, got %d", notifier.clearedCount())
	}
}

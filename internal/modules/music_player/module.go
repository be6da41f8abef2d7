package music_player

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/caarlos0/env/v11"
	"github.com/disgoorg/snowflake/v2"
	"github.com/jukebot/jukebot/internal/bot"
	"github.com/jukebot/jukebot/internal/modules/music_player/application"
	"github.com/jukebot/jukebot/internal/modules/music_player/application/ports"
	"github.com/jukebot/jukebot/internal/modules/music_player/domain"
	"github.com/jukebot/jukebot/internal/modules/music_player/infrastructure"
	"github.com/jukebot/jukebot/internal/modules/music_player/presentation"
)

func init() {
	bot.Register(&MusicPlayerModule{})
}

// Compile-time interface checks.
var (
	_ bot.ConfigurableModule = (*MusicPlayerModule)(nil)
	_ bot.ComponentModule    = (*MusicPlayerModule)(nil)
)

// MusicPlayerModule provides music playback commands.
type MusicPlayerModule struct {
	config       *Config
	handlers     *presentation.Handlers
	autocomplete *presentation.AutocompleteHandler

	registry *application.SessionRegistry
	ticker   *application.SnapshotTicker
	eventBus *infrastructure.ChannelEventBus
	adapter  *infrastructure.LavalinkAdapter
	store    *infrastructure.SQLiteSettingsStore
	notifier ports.NotificationSender
}

// Name returns the module name.
func (m *MusicPlayerModule) Name() string {
	return "music_player"
}

// Commands returns the slash commands for this module.
func (m *MusicPlayerModule) Commands() []*discordgo.ApplicationCommand {
	return presentation.Commands()
}

// CommandHandlers returns the command handlers for this module.
func (m *MusicPlayerModule) CommandHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"play":       m.handlers.HandlePlay,
		"playlist":   m.handlers.HandlePlaylist,
		"skip":       m.handlers.HandleSkip,
		"pause":      m.handlers.HandlePause,
		"resume":     m.handlers.HandleResume,
		"stop":       m.handlers.HandleStop,
		"shuffle":    m.handlers.HandleShuffle,
		"nowplaying": m.handlers.HandleNowPlaying,
		"leave":      m.handlers.HandleLeave,
		"queue":      m.handlers.HandleQueue,
		"settings":   m.handlers.HandleSettings,
		"alias":      m.handlers.HandleAlias,
	}
}

// ComponentHandlers returns the player message button handlers.
func (m *MusicPlayerModule) ComponentHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		infrastructure.ButtonPlayPause: m.handlers.HandlePlayPauseButton,
		infrastructure.ButtonSkip:      m.handlers.HandleSkipButton,
		infrastructure.ButtonStop:      m.handlers.HandleStopButton,
		infrastructure.ButtonShuffle:   m.handlers.HandleShuffleButton,
	}
}

// EventHandlers returns the event handlers for this module.
func (m *MusicPlayerModule) EventHandlers() []bot.EventHandler {
	return []bot.EventHandler{
		func(s *discordgo.Session, event *discordgo.VoiceServerUpdate) {
			if m.adapter != nil {
				m.adapter.OnVoiceServerUpdate(event)
			}
		},
		func(s *discordgo.Session, event *discordgo.VoiceStateUpdate) {
			if m.adapter != nil {
				m.adapter.OnVoiceStateUpdate(event)
			}
			m.handleBotVoiceDisconnect(s, event)
		},
		func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			m.handleInteractionCreate(s, i)
		},
	}
}

// LoadConfig loads module-specific configuration from environment variables.
func (m *MusicPlayerModule) LoadConfig() error {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return err
	}
	m.config = cfg
	return nil
}

// Init initializes the module.
func (m *MusicPlayerModule) Init(deps bot.ModuleDependencies) error {
	if deps.Session == nil {
		return fmt.Errorf("music_player requires a Discord session")
	}

	m.eventBus = infrastructure.NewChannelEventBus(infrastructure.DefaultEventBufferSize)

	adapter, err := infrastructure.NewLavalinkAdapter(deps.Session, infrastructure.LavalinkConfig{
		Address:  m.config.LavalinkAddress,
		Password: m.config.LavalinkPassword,
	})
	if err != nil {
		return fmt.Errorf("lavalink: %w", err)
	}
	m.adapter = adapter

	store, err := infrastructure.NewSQLiteSettingsStore(m.config.DatabasePath)
	if err != nil {
		return fmt.Errorf("settings store: %w", err)
	}
	m.store = store

	resolver := application.NewResolver(adapter)
	m.registry = application.NewSessionRegistry(resolver, adapter, m.eventBus)

	bridge := application.NewCompletionBridge(m.registry, m.eventBus)
	bridge.Bind(m.eventBus)
	adapter.SetCompletionNotifier(bridge)

	m.notifier = infrastructure.NewNotifier(deps.Session)
	voiceState := infrastructure.NewVoiceStateProvider(deps.Session)

	m.handlers = presentation.NewHandlers(
		m.registry,
		resolver,
		store,
		adapter,
		voiceState,
		adapter,
		m.notifier,
	)
	m.autocomplete = presentation.NewAutocompleteHandler(resolver, store)

	m.bindNotifications()

	m.ticker = application.NewSnapshotTicker(m.registry, m.notifier, m.config.SnapshotInterval)
	m.ticker.Start()

	slog.Info("music_player module initialized")

	return nil
}

// bindNotifications refreshes the player message on session events, between
// ticker intervals.
func (m *MusicPlayerModule) bindNotifications() {
	m.eventBus.OnPlaybackStarted(func(ctx context.Context, event domain.PlaybackStartedEvent) {
		session := m.registry.Get(event.GuildID)
		if session == nil {
			return
		}
		snap := session.Snapshot(time.Now())
		if err := m.notifier.UpdatePlayer(event.GuildID, session.NotificationChannelID(), snap); err != nil {
			slog.Warn("failed to update player message", "guildID", event.GuildID, "error", err)
		}
	})

	m.eventBus.OnResolutionFailed(func(ctx context.Context, event domain.ResolutionFailedEvent) {
		session := m.registry.Get(event.GuildID)
		if session == nil {
			return
		}
		text := fmt.Sprintf("Couldn't play **%s**, skipping it.", event.Reference.DisplayLabel())
		if err := m.notifier.SendNotice(session.NotificationChannelID(), text); err != nil {
			slog.Warn("failed to send notice", "guildID", event.GuildID, "error", err)
		}
	})

	m.eventBus.OnSessionIdle(func(ctx context.Context, event domain.SessionIdleEvent) {
		if err := m.notifier.ClearPlayer(event.GuildID); err != nil {
			slog.Warn("failed to clear player message", "guildID", event.GuildID, "error", err)
		}
	})
}

// handleBotVoiceDisconnect tears down the guild's session when the bot
// leaves a voice channel outside of /leave, such as being kicked or the
// channel being deleted. Without this the session would stay in its
// playing state and keep editing a player message for a dead player.
func (m *MusicPlayerModule) handleBotVoiceDisconnect(
	s *discordgo.Session,
	event *discordgo.VoiceStateUpdate,
) {
	if m.registry == nil || s == nil || s.State == nil || s.State.User == nil {
		return
	}
	if event.UserID != s.State.User.ID || event.ChannelID != "" {
		return
	}

	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		return
	}
	session := m.registry.Get(guildID)
	if session == nil {
		return
	}

	slog.Info("bot disconnected from voice, closing session", "guildID", guildID)
	session.ClearAndStop(context.Background())
	m.registry.Remove(guildID)
	if err := m.notifier.ClearPlayer(guildID); err != nil {
		slog.Warn("failed to clear player message", "guildID", guildID, "error", err)
	}
}

// Shutdown cleans up module resources.
func (m *MusicPlayerModule) Shutdown() error {
	if m.ticker != nil {
		m.ticker.Stop()
	}
	if m.registry != nil {
		for _, session := range m.registry.Sessions() {
			session.Close()
		}
	}
	if m.eventBus != nil {
		m.eventBus.Close()
	}
	if m.adapter != nil {
		m.adapter.Close()
	}
	if m.store != nil {
		if err := m.store.Close(); err != nil {
			return err
		}
	}
	return nil
}

func (m *MusicPlayerModule) handleInteractionCreate(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
) {
	if i.Type != discordgo.InteractionApplicationCommandAutocomplete {
		return
	}
	if m.autocomplete == nil {
		return
	}

	if i.ApplicationCommandData().Name == "play" {
		m.autocomplete.HandlePlay(s, i)
	}
}

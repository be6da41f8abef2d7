package presentation

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/jukebot/jukebot/internal/bot"
	"github.com/jukebot/jukebot/internal/modules/music_player/domain"
)

// ackUpdate acknowledges a component interaction without posting a new
// message. The player message itself is refreshed by the status ticker.
func ackUpdate(r bot.Responder) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
}

// HandlePlayPauseButton toggles playback from the player message.
func (h *Handlers) HandlePlayPauseButton(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return ackUpdate(r)
	}

	session := h.registry.Get(guildID)
	if session == nil {
		return ackUpdate(r)
	}

	ctx := context.Background()
	switch session.State() {
	case domain.StatePlaying:
		session.Pause(ctx)
	case domain.StatePaused:
		session.Resume(ctx)
	}
	return ackUpdate(r)
}

// HandleSkipButton skips the current track from the player message.
func (h *Handlers) HandleSkipButton(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return ackUpdate(r)
	}

	if session := h.registry.Get(guildID); session != nil {
		session.Skip(context.Background())
	}
	return ackUpdate(r)
}

// HandleStopButton stops playback and clears the queue from the player
// message.
func (h *Handlers) HandleStopButton(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return ackUpdate(r)
	}

	if session := h.registry.Get(guildID); session != nil {
		session.ClearAndStop(context.Background())
	}
	return ackUpdate(r)
}

// HandleShuffleButton shuffles the pending queue from the player message.
func (h *Handlers) HandleShuffleButton(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return ackUpdate(r)
	}

	if session := h.registry.Get(guildID); session != nil {
		session.Shuffle()
	}
	return ackUpdate(r)
}

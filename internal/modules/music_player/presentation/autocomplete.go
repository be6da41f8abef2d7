package presentation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/jukebot/jukebot/internal/modules/music_player/application"
	"github.com/jukebot/jukebot/internal/modules/music_player/application/ports"
)

const maxAutocompleteChoices = 10

// AutocompleteHandler handles autocomplete requests.
type AutocompleteHandler struct {
	resolver *application.Resolver
	settings ports.SettingsStore
}

// NewAutocompleteHandler creates a new AutocompleteHandler.
func NewAutocompleteHandler(
	resolver *application.Resolver,
	settings ports.SettingsStore,
) *AutocompleteHandler {
	return &AutocompleteHandler{
		resolver: resolver,
		settings: settings,
	}
}

// HandlePlay handles autocomplete for the play command's query option.
func (h *AutocompleteHandler) HandlePlay(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if h.resolver == nil {
		return
	}

	var query string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "query" && opt.Focused {
			query = opt.StringValue()
			break
		}
	}

	// Don't search for very short queries
	if len(query) < 2 {
		respondChoices(s, i, nil)
		return
	}

	ctx := context.Background()

	resolver := h.resolver
	if guildID, err := snowflake.Parse(i.GuildID); err == nil {
		if settings, err := h.settings.GetSettings(ctx, guildID); err == nil {
			resolver = resolver.WithSearchSource(settings.SearchSource)
		}
	}

	tracks, err := resolver.ResolveCandidates(ctx, query, maxAutocompleteChoices)
	if err != nil {
		slog.Debug("autocomplete search failed", "query", query, "error", err)
		respondChoices(s, i, nil)
		return
	}

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(tracks))
	for _, track := range tracks {
		// Use the URI as the value so it can be played directly
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncate(fmt.Sprintf("%s - %s", track.Title, track.Artist), 100),
			Value: track.URI,
		})
	}
	respondChoices(s, i, choices)
}

func respondChoices(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	choices []*discordgo.ApplicationCommandOptionChoice,
) {
	if choices == nil {
		choices = []*discordgo.ApplicationCommandOptionChoice{}
	}
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{
			Choices: choices,
		},
	})
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

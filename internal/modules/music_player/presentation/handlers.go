package presentation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/jukebot/jukebot/internal/bot"
	"github.com/jukebot/jukebot/internal/modules/music_player/application"
	"github.com/jukebot/jukebot/internal/modules/music_player/application/ports"
	"github.com/jukebot/jukebot/internal/modules/music_player/domain"
)

// Embed colors.
const (
	colorSuccess = 0x08c404
	colorError   = 0xE74C3C
)

const progressBarWidth = 20

// Handlers holds all the command handlers.
type Handlers struct {
	registry   *application.SessionRegistry
	resolver   *application.Resolver
	settings   ports.SettingsStore
	voice      ports.VoiceConnection
	voiceState ports.VoiceStateProvider
	driver     ports.PlaybackDriver
	notifier   ports.NotificationSender
}

// NewHandlers creates new Handlers.
func NewHandlers(
	registry *application.SessionRegistry,
	resolver *application.Resolver,
	settings ports.SettingsStore,
	voice ports.VoiceConnection,
	voiceState ports.VoiceStateProvider,
	driver ports.PlaybackDriver,
	notifier ports.NotificationSender,
) *Handlers {
	return &Handlers{
		registry:   registry,
		resolver:   resolver,
		settings:   settings,
		voice:      voice,
		voiceState: voiceState,
		driver:     driver,
		notifier:   notifier,
	}
}

// interactionIDs are the parsed snowflakes every guild command needs.
type interactionIDs struct {
	guildID   snowflake.ID
	userID    snowflake.ID
	channelID snowflake.ID
}

func parseInteractionIDs(i *discordgo.InteractionCreate) (interactionIDs, error) {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return interactionIDs{}, fmt.Errorf("invalid guild: %w", err)
	}
	channelID, err := snowflake.Parse(i.ChannelID)
	if err != nil {
		return interactionIDs{}, fmt.Errorf("invalid channel: %w", err)
	}

	ids := interactionIDs{guildID: guildID, channelID: channelID}
	if i.Member != nil && i.Member.User != nil {
		userID, err := snowflake.Parse(i.Member.User.ID)
		if err != nil {
			return interactionIDs{}, fmt.Errorf("invalid user: %w", err)
		}
		ids.userID = userID
	}
	return ids, nil
}

// ensureVoice joins the user's voice channel if the bot is not already
// playing in this guild.
func (h *Handlers) ensureVoice(ctx context.Context, ids interactionIDs) error {
	channelID, err := h.voiceState.GetUserVoiceChannel(ids.guildID, ids.userID)
	if err != nil {
		return err
	}
	if channelID == nil {
		if h.driver.IsActive(ids.guildID) {
			return nil
		}
		return application.ErrUserNotInVoice
	}
	return h.voice.JoinChannel(ctx, ids.guildID, *channelID)
}

// guildResolver returns the resolver configured with the guild's default
// search source.
func (h *Handlers) guildResolver(ctx context.Context, guildID snowflake.ID) *application.Resolver {
	settings, err := h.settings.GetSettings(ctx, guildID)
	if err != nil {
		return h.resolver
	}
	return h.resolver.WithSearchSource(settings.SearchSource)
}

// HandlePlay handles the /play command.
func (h *Handlers) HandlePlay(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	ids, err := parseInteractionIDs(i)
	if err != nil {
		return respondError(r, err.Error())
	}

	var query string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "query" {
			query = opt.StringValue()
		}
	}
	if strings.TrimSpace(query) == "" {
		return respondError(r, "Give me something to play.")
	}

	if err := h.ensureVoice(ctx, ids); err != nil {
		return respondError(r, err.Error())
	}

	session := h.registry.GetOrCreate(ids.guildID, ids.channelID)
	session.SetResolver(h.guildResolver(ctx, ids.guildID))

	ref := domain.NewTrackReference(query)
	position := session.Enqueue(ref)

	if position == 1 && session.State() != domain.StateIdle && session.QueueLen() == 0 {
		return respondSuccess(r, fmt.Sprintf("Starting **%s**.", ref.DisplayLabel()))
	}
	return respondSuccess(r,
		fmt.Sprintf("Queued **%s** at position %d.", ref.DisplayLabel(), position))
}

// HandlePlaylist handles the /playlist command. The argument is either a
// playlist URL or a saved alias.
func (h *Handlers) HandlePlaylist(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	ids, err := parseInteractionIDs(i)
	if err != nil {
		return respondError(r, err.Error())
	}

	var arg string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "playlist" {
			arg = strings.TrimSpace(opt.StringValue())
		}
	}
	if arg == "" {
		return respondError(r, "Give me a playlist URL or alias.")
	}

	url := arg
	if !domain.LooksLikeURL(arg) {
		aliased, found, err := h.settings.ResolveAlias(ctx, ids.guildID, arg)
		if err != nil {
			return respondError(r, err.Error())
		}
		if !found {
			return respondError(r, fmt.Sprintf("No playlist alias named **%s**.", arg))
		}
		url = aliased
	}

	if err := h.ensureVoice(ctx, ids); err != nil {
		return respondError(r, err.Error())
	}

	resolver := h.guildResolver(ctx, ids.guildID)
	refs, err := resolver.ResolvePlaylist(ctx, url)
	if err != nil {
		return respondError(r, err.Error())
	}

	session := h.registry.GetOrCreate(ids.guildID, ids.channelID)
	session.SetResolver(resolver)
	added := session.EnqueueAll(refs...)

	return respondSuccess(r, fmt.Sprintf("Queued %d tracks.", added))
}

// HandleSkip handles the /skip command.
func (h *Handlers) HandleSkip(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ids, err := parseInteractionIDs(i)
	if err != nil {
		return respondError(r, err.Error())
	}

	session := h.registry.Get(ids.guildID)
	if session == nil || !session.Skip(context.Background()) {
		return respondError(r, application.ErrNotPlaying.Error())
	}
	return respondSuccess(r, "Skipped.")
}

// HandlePause handles the /pause command.
func (h *Handlers) HandlePause(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ids, err := parseInteractionIDs(i)
	if err != nil {
		return respondError(r, err.Error())
	}

	session := h.registry.Get(ids.guildID)
	if session == nil || !session.Pause(context.Background()) {
		return respondError(r, application.ErrNotPlaying.Error())
	}
	return respondSuccess(r, "Paused playback.")
}

// HandleResume handles the /resume command.
func (h *Handlers) HandleResume(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ids, err := parseInteractionIDs(i)
	if err != nil {
		return respondError(r, err.Error())
	}

	session := h.registry.Get(ids.guildID)
	if session == nil || !session.Resume(context.Background()) {
		return respondError(r, "Nothing is paused.")
	}
	return respondSuccess(r, "Resumed playback.")
}

// HandleStop handles the /stop command.
func (h *Handlers) HandleStop(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ids, err := parseInteractionIDs(i)
	if err != nil {
		return respondError(r, err.Error())
	}

	session := h.registry.Get(ids.guildID)
	if session == nil {
		return respondError(r, application.ErrNotPlaying.Error())
	}
	session.ClearAndStop(context.Background())
	return respondSuccess(r, "Stopped playback and cleared the queue.")
}

// HandleShuffle handles the /shuffle command.
func (h *Handlers) HandleShuffle(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ids, err := parseInteractionIDs(i)
	if err != nil {
		return respondError(r, err.Error())
	}

	session := h.registry.Get(ids.guildID)
	if session == nil || !session.Shuffle() {
		return respondError(r, "Need at least two queued tracks to shuffle.")
	}
	return respondSuccess(r, "Shuffled the queue.")
}

// HandleNowPlaying handles the /nowplaying command.
func (h *Handlers) HandleNowPlaying(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ids, err := parseInteractionIDs(i)
	if err != nil {
		return respondError(r, err.Error())
	}

	session := h.registry.Get(ids.guildID)
	if session == nil {
		return respondError(r, application.ErrNotPlaying.Error())
	}

	snap := session.Snapshot(time.Now())
	if !snap.State.HasCurrent() {
		return respondError(r, application.ErrNotPlaying.Error())
	}

	return respondNowPlaying(r, snap)
}

// HandleLeave handles the /leave command.
func (h *Handlers) HandleLeave(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	ids, err := parseInteractionIDs(i)
	if err != nil {
		return respondError(r, err.Error())
	}

	if session := h.registry.Get(ids.guildID); session != nil {
		session.ClearAndStop(ctx)
		h.registry.Remove(ids.guildID)
	}
	_ = h.notifier.ClearPlayer(ids.guildID)

	if err := h.voice.LeaveChannel(ctx, ids.guildID); err != nil {
		return respondError(r, err.Error())
	}
	return respondSuccess(r, "Disconnected.")
}

// HandleQueue handles the /queue command.
func (h *Handlers) HandleQueue(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return respondError(r, "Invalid subcommand")
	}

	subCmd := options[0]
	switch subCmd.Name {
	case "list":
		return h.handleQueueList(i, r)
	case "remove":
		return h.handleQueueRemove(i, r, subCmd.Options)
	default:
		return respondError(r, "Unknown subcommand")
	}
}

func (h *Handlers) handleQueueList(i *discordgo.InteractionCreate, r bot.Responder) error {
	ids, err := parseInteractionIDs(i)
	if err != nil {
		return respondError(r, err.Error())
	}

	session := h.registry.Get(ids.guildID)
	if session == nil {
		return respondQueueList(r, domain.StatusSnapshot{}, nil)
	}
	return respondQueueList(r, session.Snapshot(time.Now()), session.Pending())
}

func (h *Handlers) handleQueueRemove(
	i *discordgo.InteractionCreate,
	r bot.Responder,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) error {
	ids, err := parseInteractionIDs(i)
	if err != nil {
		return respondError(r, err.Error())
	}

	var position int
	for _, opt := range options {
		if opt.Name == "position" {
			position = int(opt.IntValue())
		}
	}

	session := h.registry.Get(ids.guildID)
	if session == nil {
		return respondError(r, "The queue is empty.")
	}

	removed := session.RemovePending(position)
	if removed == nil {
		return respondError(r, fmt.Sprintf("No queue entry at position %d.", position))
	}
	return respondSuccess(r, fmt.Sprintf("Removed **%s**.", removed.DisplayLabel()))
}

// HandleSettings handles the /settings command.
func (h *Handlers) HandleSettings(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ids, err := parseInteractionIDs(i)
	if err != nil {
		return respondError(r, err.Error())
	}

	options := i.ApplicationCommandData().Options
	if len(options) == 0 || options[0].Name != "source" {
		return respondError(r, "Unknown subcommand")
	}

	var source string
	for _, opt := range options[0].Options {
		if opt.Name == "source" {
			source = opt.StringValue()
		}
	}

	if err := h.settings.SetSearchSource(context.Background(), ids.guildID, source); err != nil {
		return respondError(r, err.Error())
	}
	return respondSuccess(r, fmt.Sprintf("Default search source set to `%s`.", source))
}

// HandleAlias handles the /alias command.
func (h *Handlers) HandleAlias(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	ids, err := parseInteractionIDs(i)
	if err != nil {
		return respondError(r, err.Error())
	}

	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return respondError(r, "Invalid subcommand")
	}

	subCmd := options[0]
	optValue := func(name string) string {
		for _, opt := range subCmd.Options {
			if opt.Name == name {
				return strings.TrimSpace(opt.StringValue())
			}
		}
		return ""
	}

	switch subCmd.Name {
	case "set":
		name, url := optValue("name"), optValue("url")
		if name == "" || url == "" {
			return respondError(r, "Both name and url are required.")
		}
		if err := h.settings.SetAlias(ctx, ids.guildID, name, url); err != nil {
			return respondError(r, err.Error())
		}
		return respondSuccess(r, fmt.Sprintf("Saved playlist alias **%s**.", name))

	case "remove":
		name := optValue("name")
		deleted, err := h.settings.DeleteAlias(ctx, ids.guildID, name)
		if err != nil {
			return respondError(r, err.Error())
		}
		if !deleted {
			return respondError(r, fmt.Sprintf("No playlist alias named **%s**.", name))
		}
		return respondSuccess(r, fmt.Sprintf("Removed playlist alias **%s**.", name))

	case "list":
		aliases, err := h.settings.ListAliases(ctx, ids.guildID)
		if err != nil {
			return respondError(r, err.Error())
		}
		return respondAliasList(r, aliases)

	default:
		return respondError(r, "Unknown subcommand")
	}
}

// Response helpers.

func respondError(r bot.Responder, message string) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       "Error",
					Description: message,
					Color:       colorError,
				},
			},
		},
	})
}

func respondSuccess(r bot.Responder, message string) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Description: message,
					Color:       colorSuccess,
				},
			},
		},
	})
}

func respondNowPlaying(r bot.Responder, snap domain.StatusSnapshot) error {
	name := "Now Playing"
	if !snap.IsPlaying {
		name = "Paused"
	}

	embed := &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{Name: name},
		Title:  snap.Title,
		Color:  colorSuccess,
		Description: fmt.Sprintf("`%s` %s `%s`",
			snap.ElapsedLabel,
			snap.ProgressBar(progressBarWidth),
			snap.TotalLabel,
		),
	}
	if snap.ThumbnailURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: snap.ThumbnailURL}
	}

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}

func respondQueueList(
	r bot.Responder,
	snap domain.StatusSnapshot,
	pending []domain.TrackReference,
) error {
	embed := &discordgo.MessageEmbed{Title: "Queue"}

	var sb strings.Builder
	if snap.State.HasCurrent() {
		sb.WriteString("### Now Playing\n")
		fmt.Fprintf(&sb, "**%s** `%s / %s`\n", snap.Title, snap.ElapsedLabel, snap.TotalLabel)
	}
	if len(pending) > 0 {
		sb.WriteString("### Up Next\n")
		for idx, ref := range pending {
			// escape the period so Discord does not render an ordered list
			fmt.Fprintf(&sb, "%d\\. %s\n", idx+1, ref.DisplayLabel())
		}
	}
	if sb.Len() == 0 {
		embed.Description = "Queue is empty."
	} else {
		embed.Description = sb.String()
	}

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}

func respondAliasList(r bot.Responder, aliases []ports.PlaylistAlias) error {
	embed := &discordgo.MessageEmbed{Title: "Playlist Aliases"}

	if len(aliases) == 0 {
		embed.Description = "No aliases saved."
	} else {
		var sb strings.Builder
		for _, alias := range aliases {
			fmt.Fprintf(&sb, "**%s** - %s\n", alias.Name, alias.URL)
		}
		embed.Description = sb.String()
	}

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}

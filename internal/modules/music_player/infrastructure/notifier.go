package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/jukebot/jukebot/internal/modules/music_player/application/ports"
	"github.com/jukebot/jukebot/internal/modules/music_player/domain"
)

// Embed colors.
const (
	colorRed     = 0xE74C3C
	colorBlurple = 0x5865F2
	colorGrey    = 0x95A5A6
)

// Player button custom IDs, routed by the presentation layer.
const (
	ButtonPlayPause = "music_player:play_pause"
	ButtonSkip      = "music_player:skip"
	ButtonStop      = "music_player:stop"
	ButtonShuffle   = "music_player:shuffle"
)

const progressBarWidth = 20

// playerMessage locates a guild's persistent player message.
type playerMessage struct {
	channelID snowflake.ID
	messageID string
}

// Notifier renders status snapshots into Discord messages. Each guild has
// at most one player message, edited in place by the snapshot ticker and
// recreated when it moves to another channel.
type Notifier struct {
	session    *discordgo.Session
	httpClient *http.Client

	mu      sync.Mutex
	players map[snowflake.ID]playerMessage
}

// NewNotifier creates a new Notifier.
func NewNotifier(session *discordgo.Session) *Notifier {
	return &Notifier{
		session: session,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		players: make(map[snowflake.ID]playerMessage),
	}
}

// UpdatePlayer creates or edits the guild's player message from the
// snapshot.
func (n *Notifier) UpdatePlayer(guildID, channelID snowflake.ID, snap domain.StatusSnapshot) error {
	embed := n.buildPlayerEmbed(snap)
	components := playerComponents(snap)

	n.mu.Lock()
	existing, ok := n.players[guildID]
	n.mu.Unlock()

	if ok && existing.channelID == channelID {
		_, err := n.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
			Channel:    existing.channelID.String(),
			ID:         existing.messageID,
			Embeds:     &[]*discordgo.MessageEmbed{embed},
			Components: &components,
		})
		if err == nil {
			return nil
		}
		// the message was deleted or is otherwise unusable; recreate below
		n.mu.Lock()
		delete(n.players, guildID)
		n.mu.Unlock()
	}

	if ok && existing.channelID != channelID {
		_ = n.session.ChannelMessageDelete(existing.channelID.String(), existing.messageID)
	}

	msg, err := n.session.ChannelMessageSendComplex(channelID.String(), &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: components,
	})
	if err != nil {
		return fmt.Errorf("failed to send player message: %w", err)
	}

	n.mu.Lock()
	n.players[guildID] = playerMessage{channelID: channelID, messageID: msg.ID}
	n.mu.Unlock()
	return nil
}

// ClearPlayer deletes the guild's player message, if any.
func (n *Notifier) ClearPlayer(guildID snowflake.ID) error {
	n.mu.Lock()
	existing, ok := n.players[guildID]
	if ok {
		delete(n.players, guildID)
	}
	n.mu.Unlock()

	if !ok {
		return nil
	}
	return n.session.ChannelMessageDelete(existing.channelID.String(), existing.messageID)
}

// SendNotice sends a short informational embed to the channel.
func (n *Notifier) SendNotice(channelID snowflake.ID, text string) error {
	embed := &discordgo.MessageEmbed{
		Description: text,
	}
	_, err := n.session.ChannelMessageSendEmbed(channelID.String(), embed)
	return err
}

func (n *Notifier) buildPlayerEmbed(snap domain.StatusSnapshot) *discordgo.MessageEmbed {
	name := "Now Playing"
	color := colorBlurple
	if !snap.IsPlaying {
		name = "Paused"
		color = colorGrey
	}

	embed := &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{
			Name: name,
		},
		Title: snap.Title,
		Color: color,
		Description: fmt.Sprintf("`%s` %s `%s`",
			snap.ElapsedLabel,
			snap.ProgressBar(progressBarWidth),
			snap.TotalLabel,
		),
	}

	if len(snap.QueuePreview) > 0 {
		var sb strings.Builder
		for i, label := range snap.QueuePreview {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, label)
		}
		if snap.QueueRemaining > 0 {
			fmt.Fprintf(&sb, "…and %d more", snap.QueueRemaining)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Up Next",
			Value: sb.String(),
		})
	}

	if url := n.bestThumbnail(snap.ThumbnailURL); url != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: url}
	}

	return embed
}

func playerComponents(snap domain.StatusSnapshot) []discordgo.MessageComponent {
	playPauseLabel := "Pause"
	if !snap.IsPlaying {
		playPauseLabel = "Play"
	}

	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    playPauseLabel,
					Style:    discordgo.PrimaryButton,
					CustomID: ButtonPlayPause,
				},
				discordgo.Button{
					Label:    "Skip",
					Style:    discordgo.SecondaryButton,
					CustomID: ButtonSkip,
				},
				discordgo.Button{
					Label:    "Shuffle",
					Style:    discordgo.SecondaryButton,
					CustomID: ButtonShuffle,
				},
				discordgo.Button{
					Label:    "Stop",
					Style:    discordgo.DangerButton,
					CustomID: ButtonStop,
				},
			},
		},
	}
}

// bestThumbnail upgrades known low-resolution artwork URLs when the
// higher resolution variant actually exists.
func (n *Notifier) bestThumbnail(artworkURL string) string {
	if artworkURL == "" {
		return ""
	}

	// Twitch artwork defaults to 440x248
	highResURL := strings.Replace(artworkURL, "440x248", "1280x720", 1)
	if highResURL == artworkURL {
		return artworkURL
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if n.urlExists(ctx, highResURL) {
		return highResURL
	}
	return artworkURL
}

func (n *Notifier) urlExists(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

// Ensure Notifier implements ports.NotificationSender.
var _ ports.NotificationSender = (*Notifier)(nil)

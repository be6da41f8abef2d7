package ports

import (
	"github.com/disgoorg/snowflake/v2"
	"github.com/jukebot/jukebot/internal/modules/music_player/domain"
)

// NotificationSender renders session status to the chat surface. The core
// only produces StatusSnapshot values; how they are displayed is entirely
// up to the implementation.
type NotificationSender interface {
	// UpdatePlayer creates or edits the guild's persistent player message
	// from the given snapshot.
	UpdatePlayer(guildID, channelID snowflake.ID, snap domain.StatusSnapshot) error

	// ClearPlayer removes the guild's player message, if any.
	ClearPlayer(guildID snowflake.ID) error

	// SendNotice sends a short informational message to the channel.
	SendNotice(channelID snowflake.ID, text string) error
}

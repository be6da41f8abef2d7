package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
)

// GuildSettings are the persisted per-guild preferences. They live outside
// the playback core and survive restarts.
type GuildSettings struct {
	GuildID      snowflake.ID
	SearchSource string // search prefix for bare queries, e.g. "ytsearch"
}

// PlaylistAlias is a guild-scoped shorthand for a playlist URL.
type PlaylistAlias struct {
	Name string
	URL  string
}

// SettingsStore persists per-guild settings and playlist aliases.
type SettingsStore interface {
	// GetSettings returns the guild's settings, falling back to defaults
	// for guilds that were never configured.
	GetSettings(ctx context.Context, guildID snowflake.ID) (GuildSettings, error)

	// SetSearchSource updates the guild's default search source.
	SetSearchSource(ctx context.Context, guildID snowflake.ID, source string) error

	// ResolveAlias looks up a playlist alias. The second return value is
	// false if the alias does not exist.
	ResolveAlias(ctx context.Context, guildID snowflake.ID, name string) (string, bool, error)

	// SetAlias creates or replaces a playlist alias.
	SetAlias(ctx context.Context, guildID snowflake.ID, name, url string) error

	// DeleteAlias removes a playlist alias. Returns false if it did not exist.
	DeleteAlias(ctx context.Context, guildID snowflake.ID, name string) (bool, error)

	// ListAliases returns all aliases for the guild, sorted by name.
	ListAliases(ctx context.Context, guildID snowflake.ID) ([]PlaylistAlias, error)
}

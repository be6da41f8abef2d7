package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/jukebot/jukebot/internal/modules/music_player/application"
	"github.com/jukebot/jukebot/internal/modules/music_player/application/ports"
)

const settingsSchema = `
CREATE TABLE IF NOT EXISTS guild_settings (
	guild_id      TEXT PRIMARY KEY,
	search_source TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS playlist_aliases (
	guild_id TEXT NOT NULL,
	name     TEXT NOT NULL,
	url      TEXT NOT NULL,
	PRIMARY KEY (guild_id, name)
);
`

// SQLiteSettingsStore persists guild settings and playlist aliases in a
// local SQLite database.
type SQLiteSettingsStore struct {
	db *sqlx.DB
}

// NewSQLiteSettingsStore opens (or creates) the database at path and
// applies the schema.
func NewSQLiteSettingsStore(path string) (*SQLiteSettingsStore, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings database: %w", err)
	}
	if _, err := db.Exec(settingsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply settings schema: %w", err)
	}
	return &SQLiteSettingsStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteSettingsStore) Close() error {
	return s.db.Close()
}

// GetSettings returns the guild's settings, with the default search source
// for guilds that were never configured.
func (s *SQLiteSettingsStore) GetSettings(ctx context.Context, guildID snowflake.ID) (ports.GuildSettings, error) {
	settings := ports.GuildSettings{
		GuildID:      guildID,
		SearchSource: application.DefaultSearchSource,
	}

	var source string
	err := s.db.GetContext(ctx, &source,
		`SELECT search_source FROM guild_settings WHERE guild_id = ?`,
		guildID.String(),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return settings, nil
	}
	if err != nil {
		return settings, fmt.Errorf("failed to read guild settings: %w", err)
	}

	settings.SearchSource = source
	return settings, nil
}

// SetSearchSource updates the guild's default search source.
func (s *SQLiteSettingsStore) SetSearchSource(ctx context.Context, guildID snowflake.ID, source string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO guild_settings (guild_id, search_source)
		 VALUES (?, ?)
		 ON CONFLICT(guild_id) DO UPDATE SET search_source = excluded.search_source`,
		guildID.String(), source,
	)
	if err != nil {
		return fmt.Errorf("failed to set search source: %w", err)
	}
	return nil
}

// ResolveAlias looks up a playlist alias.
func (s *SQLiteSettingsStore) ResolveAlias(ctx context.Context, guildID snowflake.ID, name string) (string, bool, error) {
	var url string
	err := s.db.GetContext(ctx, &url,
		`SELECT url FROM playlist_aliases WHERE guild_id = ? AND name = ?`,
		guildID.String(), name,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve alias: %w", err)
	}
	return url, true, nil
}

// SetAlias creates or replaces a playlist alias.
func (s *SQLiteSettingsStore) SetAlias(ctx context.Context, guildID snowflake.ID, name, url string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO playlist_aliases (guild_id, name, url)
		 VALUES (?, ?, ?)
		 ON CONFLICT(guild_id, name) DO UPDATE SET url = excluded.url`,
		guildID.String(), name, url,
	)
	if err != nil {
		return fmt.Errorf("failed to set alias: %w", err)
	}
	return nil
}

// DeleteAlias removes a playlist alias.
func (s *SQLiteSettingsStore) DeleteAlias(ctx context.Context, guildID snowflake.ID, name string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM playlist_aliases WHERE guild_id = ? AND name = ?`,
		guildID.String(), name,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete alias: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListAliases returns all aliases for the guild, sorted by name.
func (s *SQLiteSettingsStore) ListAliases(ctx context.Context, guildID snowflake.ID) ([]ports.PlaylistAlias, error) {
	var rows []struct {
		Name string `db:"name"`
		URL  string `db:"url"`
	}
	err := s.db.SelectContext(ctx, &rows,
		`SELECT name, url FROM playlist_aliases WHERE guild_id = ? ORDER BY name`,
		guildID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list aliases: %w", err)
	}

	aliases := make([]ports.PlaylistAlias, 0, len(rows))
	for _, row := range rows {
		aliases = append(aliases, ports.PlaylistAlias{Name: row.Name, URL: row.URL})
	}
	return aliases, nil
}

// Ensure SQLiteSettingsStore implements ports.SettingsStore.
var _ ports.SettingsStore = (*SQLiteSettingsStore)(nil)

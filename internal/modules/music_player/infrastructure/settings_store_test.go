package infrastructure

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/jukebot/jukebot/internal/modules/music_player/application"
)

func newTestStore(t *testing.T) *SQLiteSettingsStore {
	t.Helper()
	store, err := NewSQLiteSettingsStore(filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSettingsStoreDefaults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	settings, err := store.GetSettings(ctx, snowflake.ID(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.SearchSource != application.DefaultSearchSource {
		t.Errorf("expected default search source, got %q", settings.SearchSource)
	}
}

func TestSettingsStoreSearchSourceRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	guildID := snowflake.ID(1)

	if err := store.SetSearchSource(ctx, guildID, "scsearch"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// upsert overwrites
	if err := store.SetSearchSource(ctx, guildID, "spsearch"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	settings, err := store.GetSettings(ctx, guildID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.SearchSource != "spsearch" {
		t.Errorf("expected spsearch, got %q", settings.SearchSource)
	}

	other, err := store.GetSettings(ctx, snowflake.ID(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if other.SearchSource != application.DefaultSearchSource {
		t.Error("expected other guilds unaffected")
	}
}

func TestSettingsStoreAliases(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	guildID := snowflake.ID(1)

	if _, found, err := store.ResolveAlias(ctx, guildID, "goonmix"); err != nil || found {
		t.Fatalf("expected miss for unknown alias, found=%v err=%v", found, err)
	}

	if err := store.SetAlias(ctx, guildID, "goonmix", "https://example.com/playlist/1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.SetAlias(ctx, guildID, "chill", "https://example.com/playlist/2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	url, found, err := store.ResolveAlias(ctx, guildID, "goonmix")
	if err != nil || !found {
		t.Fatalf("expected hit, found=%v err=%v", found, err)
	}
	if url != "https://example.com/playlist/1" {
		t.Errorf("unexpected url %q", url)
	}

	// replace
	if err := store.SetAlias(ctx, guildID, "goonmix", "https://example.com/playlist/3"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	url, _, _ = store.ResolveAlias(ctx, guildID, "goonmix")
	if url != "https://example.com/playlist/3" {
		t.Errorf("expected replaced url, got %q", url)
	}

	aliases, err := store.ListAliases(ctx, guildID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(aliases) != 2 {
		t.Fatalf("expected 2 aliases, got %d", len(aliases))
	}
	if aliases[0].Name != "chill" || aliases[1].Name != "goonmix" {
		t.Errorf("expected aliases sorted by name, got %v", aliases)
	}

	// aliases are guild scoped
	if _, found, _ := store.ResolveAlias(ctx, snowflake.ID(2), "goonmix"); found {
		t.Error("expected alias invisible to other guilds")
	}

	deleted, err := store.DeleteAlias(ctx, guildID, "goonmix")
	if err != nil || !deleted {
		t.Fatalf("expected delete to succeed, deleted=%v err=%v", deleted, err)
	}
	deleted, err = store.DeleteAlias(ctx, guildID, "goonmix")
	if err != nil || deleted {
		t.Fatalf("expected second delete to report missing, deleted=%v err=%v", deleted, err)
	}
}

package music_player

import "time"

// Config holds the music player module configuration.
type Config struct {
	LavalinkAddress  string        `env:"LAVALINK_ADDRESS,notEmpty"`
	LavalinkPassword string        `env:"LAVALINK_PASSWORD,notEmpty"`
	DatabasePath     string        `env:"JUKEBOT_DB_PATH" envDefault:"jukebot.db"`
	SnapshotInterval time.Duration `env:"JUKEBOT_SNAPSHOT_INTERVAL" envDefault:"5s"`
}

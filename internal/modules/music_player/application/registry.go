package application

import (
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/jukebot/jukebot/internal/modules/music_player/application/ports"
)

// SessionRegistry maps guilds to their playback sessions. Creation is
// atomic: concurrent GetOrCreate calls for the same guild observe the
// same session.
type SessionRegistry struct {
	resolver  *Resolver
	driver    ports.PlaybackDriver
	publisher ports.EventPublisher

	mu       sync.Mutex
	sessions map[snowflake.ID]*Session
}

// NewSessionRegistry creates an empty registry. New sessions are wired
// with the given collaborators.
func NewSessionRegistry(resolver *Resolver, driver ports.PlaybackDriver, publisher ports.EventPublisher) *SessionRegistry {
	return &SessionRegistry{
		resolver:  resolver,
		driver:    driver,
		publisher: publisher,
		sessions:  make(map[snowflake.ID]*Session),
	}
}

// GetOrCreate returns the guild's session, creating it if absent. The
// notification channel is recorded on the session either way, so the
// player message follows the channel the user last interacted from.
func (r *SessionRegistry) GetOrCreate(guildID, notificationChannelID snowflake.ID) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if session, ok := r.sessions[guildID]; ok {
		session.SetNotificationChannelID(notificationChannelID)
		return session
	}

	session := NewSession(guildID, notificationChannelID, r.resolver, r.driver, r.publisher)
	r.sessions[guildID] = session
	return session
}

// Get returns the guild's session, or nil if none exists.
func (r *SessionRegistry) Get(guildID snowflake.ID) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[guildID]
}

// Remove closes and forgets the guild's session. A no-op when absent.
func (r *SessionRegistry) Remove(guildID snowflake.ID) {
	r.mu.Lock()
	session, ok := r.sessions[guildID]
	if ok {
		delete(r.sessions, guildID)
	}
	r.mu.Unlock()

	if ok {
		session.Close()
	}
}

// Sessions returns a point-in-time list of all sessions.
func (r *SessionRegistry) Sessions() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := make([]*Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		sessions = append(sessions, session)
	}
	return sessions
}

package domain

// SessionState is the playback state of one guild's session.
type SessionState int

const (
	// StateIdle means nothing is playing and the queue is not being resolved.
	StateIdle SessionState = iota
	// StateResolving means the front queue reference is being resolved.
	StateResolving
	// StatePlaying means a track is playing.
	StatePlaying
	// StatePaused means the current track is paused.
	StatePaused
)

// String returns the lowercase name of the state.
func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// HasCurrent reports whether a current track is set in this state.
// The session invariant is that current is set iff Playing or Paused.
func (s SessionState) HasCurrent() bool {
	return s == StatePlaying || s == StatePaused
}

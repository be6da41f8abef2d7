package application

import (
	"errors"
	"fmt"
)

// Application errors for the music player module. Precondition failures are
// sentinel values so the presentation layer can map them to user-facing
// notices; none of them are fatal to a session.
var (
	// ErrNotConnected is returned when an operation requires the bot to be in a voice channel.
	ErrNotConnected = errors.New("not connected to a voice channel")

	// ErrUserNotInVoice is returned when the user is not in a voice channel.
	ErrUserNotInVoice = errors.New("you must be in a voice channel")

	// ErrNotPlaying is returned when no track is currently playing.
	ErrNotPlaying = errors.New("nothing is currently playing")

	// ErrNoResults is returned when a search yields no results.
	ErrNoResults = errors.New("no results found")

	// ErrEmptyQuery is returned when a blank query is submitted.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrEmptyPlaylist is returned when playlist expansion produced no usable entries.
	ErrEmptyPlaylist = errors.New("playlist is empty or could not be read")
)

// ResolutionError is the terminal failure of the resolver: every attempt
// was exhausted without a usable result. It carries the last underlying
// error for diagnostics.
type ResolutionError struct {
	Query    string
	Attempts int
	Err      error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve %q after %d attempts: %v", e.Query, e.Attempts, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

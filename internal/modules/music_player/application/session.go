package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/jukebot/jukebot/internal/modules/music_player/application/ports"
	"github.com/jukebot/jukebot/internal/modules/music_player/domain"
)

// defaultDriverTimeout bounds driver calls made while holding the session
// mutex. A wedged playback node must not pin the lock, or snapshots for
// every other guild stall behind it.
const defaultDriverTimeout = 5 * time.Second

// Session is the playback state machine for one guild. It owns the pending
// queue, the current track and its pause ledger, and orchestrates
// resolve -> play -> advance.
//
// All mutations are serialized by the session mutex. Resolution is the one
// long-running step and runs off-lock in its own goroutine, guarded by a
// generation counter: Skip and ClearAndStop bump the generation and cancel
// the resolve context, so a stale result that still arrives is discarded.
// Completion signals reach the session only through HandleTrackEnd, which
// the completion bridge invokes from its dispatcher goroutine.
type Session struct {
	guildID snowflake.ID

	resolver  *Resolver
	driver    ports.PlaybackDriver
	publisher ports.EventPublisher

	// session lifetime; parent of every resolve context
	ctx    context.Context
	cancel context.CancelFunc

	mu                    sync.Mutex
	state                 domain.SessionState
	queue                 domain.Queue
	current               *domain.Track
	currentRef            domain.TrackReference
	ledger                domain.PauseLedger
	notificationChannelID snowflake.ID

	resolveGen    uint64
	resolveCancel context.CancelFunc

	driverTimeout time.Duration
}

// NewSession creates an idle Session for the guild.
func NewSession(
	guildID snowflake.ID,
	notificationChannelID snowflake.ID,
	resolver *Resolver,
	driver ports.PlaybackDriver,
	publisher ports.EventPublisher,
) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		guildID:               guildID,
		notificationChannelID: notificationChannelID,
		resolver:              resolver,
		driver:                driver,
		publisher:             publisher,
		ctx:                   ctx,
		cancel:                cancel,
		state:                 domain.StateIdle,
		queue:                 domain.NewQueue(),
		driverTimeout:         defaultDriverTimeout,
	}
}

// GuildID returns the guild this session belongs to.
func (s *Session) GuildID() snowflake.ID {
	return s.guildID
}

// NotificationChannelID returns the channel the player message lives in.
func (s *Session) NotificationChannelID() snowflake.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notificationChannelID
}

// SetNotificationChannelID moves the player message to another channel.
func (s *Session) SetNotificationChannelID(channelID snowflake.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if channelID != 0 {
		s.notificationChannelID = channelID
	}
}

// State returns the current session state.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// QueueLen returns the number of pending references.
func (s *Session) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// Enqueue appends a reference to the queue tail and returns its 1-based
// position. If the session was idle, the reference starts resolving
// immediately and position 1 means "starting now".
func (s *Session) Enqueue(ref domain.TrackReference) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	position := s.queue.Append(ref)
	if s.state == domain.StateIdle {
		s.startNextLocked()
	}
	return position
}

// EnqueueAll appends references in order and returns how many were added.
// Playback starts if the session was idle.
func (s *Session) EnqueueAll(refs ...domain.TrackReference) int {
	if len(refs) == 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue.Append(refs...)
	if s.state == domain.StateIdle {
		s.startNextLocked()
	}
	return len(refs)
}

// SetResolver swaps the resolver used for subsequent resolutions, e.g.
// after a guild changes its default search source. In-flight resolutions
// keep the resolver they started with.
func (s *Session) SetResolver(resolver *Resolver) {
	if resolver == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolver = resolver
}

// Pending returns a copy of the pending queue in play order.
func (s *Session) Pending() []domain.TrackReference {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.List()
}

// RemovePending removes the pending reference at the 1-based position.
// Returns nil when the position is out of range.
func (s *Session) RemovePending(position int) *domain.TrackReference {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.RemoveAt(position - 1)
}

// Skip drops the current track. While playing or paused it stops the
// driver; the driver's completion signal then advances the queue, which
// keeps completion ordering intact. While resolving it cancels the
// in-flight resolution and moves to the next reference directly. Returns
// false when there is nothing to skip.
func (s *Session) Skip(ctx context.Context) bool {
	s.mu.Lock()

	switch s.state {
	case domain.StatePlaying, domain.StatePaused:
		s.mu.Unlock()
		if err := s.driver.Stop(ctx, s.guildID); err != nil {
			slog.Error("failed to stop driver for skip", "guild", s.guildID, "error", err)
			return false
		}
		return true

	case domain.StateResolving:
		if s.resolveCancel != nil {
			s.resolveCancel()
		}
		s.startNextLocked()
		s.mu.Unlock()
		return true

	default:
		s.mu.Unlock()
		return false
	}
}

// Pause pauses playback. Returns false without change unless playing.
func (s *Session) Pause(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StatePlaying {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, s.driverTimeout)
	defer cancel()
	if err := s.driver.Pause(ctx, s.guildID); err != nil {
		slog.Error("failed to pause driver", "guild", s.guildID, "error", err)
		return false
	}

	ledger, err := s.ledger.Pause(time.Now())
	if err != nil {
		return false
	}
	s.ledger = ledger
	s.state = domain.StatePaused
	return true
}

// Resume resumes paused playback. Returns false without change unless paused.
func (s *Session) Resume(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StatePaused {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, s.driverTimeout)
	defer cancel()
	if err := s.driver.Resume(ctx, s.guildID); err != nil {
		slog.Error("failed to resume driver", "guild", s.guildID, "error", err)
		return false
	}

	ledger, err := s.ledger.Resume(time.Now())
	if err != nil {
		return false
	}
	s.ledger = ledger
	s.state = domain.StatePlaying
	return true
}

// ClearAndStop empties the queue, cancels any in-flight resolution, stops
// active playback and returns the session to idle. The driver's completion
// signal for the stopped track finds no current track and is discarded.
func (s *Session) ClearAndStop(ctx context.Context) {
	s.mu.Lock()

	s.queue.Clear()
	if s.resolveCancel != nil {
		s.resolveCancel()
		s.resolveCancel = nil
	}
	s.resolveGen++

	hadCurrent := s.state.HasCurrent()
	s.current = nil
	s.state = domain.StateIdle
	s.mu.Unlock()

	if hadCurrent {
		if err := s.driver.Stop(ctx, s.guildID); err != nil {
			slog.Warn("failed to stop driver on clear", "guild", s.guildID, "error", err)
		}
	}
	s.publisher.PublishSessionIdle(domain.SessionIdleEvent{GuildID: s.guildID})
}

// Shuffle permutes the pending queue. Returns false with no change if
// fewer than two references are pending. The current track never moves.
func (s *Session) Shuffle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Shuffle()
}

// Snapshot returns a consistent point-in-time status projection. Safe to
// call from any goroutine.
func (s *Session) Snapshot(now time.Time) domain.StatusSnapshot {
	s.mu.Lock()
	view := domain.SessionView{
		State:   s.state,
		Ledger:  s.ledger,
		Pending: s.queue.List(),
	}
	if s.current != nil {
		current := *s.current
		view.Current = &current
	}
	s.mu.Unlock()

	return domain.BuildSnapshot(view, now)
}

// HandleTrackEnd processes a completion signal from the driver. A signal
// for a track that is no longer current (stale or duplicate) is a no-op.
// Driver errors only end the current track; the queue advances exactly as
// on natural completion.
func (s *Session) HandleTrackEnd(event domain.TrackEndedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.HasCurrent() || s.currentRef.ID != event.ReferenceID {
		slog.Debug("discarding stale completion signal",
			"guild", s.guildID,
			"reference", event.ReferenceID,
		)
		return
	}

	if event.Err != nil {
		slog.Warn("track ended with driver error",
			"guild", s.guildID,
			"track", s.current.Title,
			"error", event.Err,
		)
	}

	if !event.Reason.ShouldAdvance() {
		// Replaced means a successor is already starting; cleanup means the
		// player is being torn down. Either way this track is gone.
		s.current = nil
		s.state = domain.StateIdle
		return
	}

	s.current = nil
	s.startNextLocked()
}

// Close releases the session. Any in-flight resolution is cancelled via
// the session context.
func (s *Session) Close() {
	s.mu.Lock()
	s.queue.Clear()
	s.current = nil
	s.state = domain.StateIdle
	s.mu.Unlock()

	s.cancel()
}

// startNextLocked pops the front reference and starts resolving it, or
// settles into idle when the queue is empty. Callers must hold s.mu.
func (s *Session) startNextLocked() {
	ref := s.queue.PopFront()
	if ref == nil {
		s.current = nil
		s.state = domain.StateIdle
		s.publisher.PublishSessionIdle(domain.SessionIdleEvent{GuildID: s.guildID})
		return
	}

	s.current = nil
	s.state = domain.StateResolving
	s.resolveGen++
	gen := s.resolveGen
	resolver := s.resolver

	ctx, cancel := context.WithCancel(s.ctx)
	s.resolveCancel = cancel

	go func() {
		defer cancel()
		s.resolveAndPlay(ctx, resolver, gen, *ref)
	}()
}

// resolveAndPlay runs one reference through the resolver and, if this
// resolution is still the session's latest, hands the result to the
// driver. Runs without the lock held during the (potentially slow)
// resolution so other operations and snapshots proceed meanwhile.
func (s *Session) resolveAndPlay(ctx context.Context, resolver *Resolver, gen uint64, ref domain.TrackReference) {
	track, err := resolver.Resolve(ctx, ref.Raw)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.resolveGen || s.state != domain.StateResolving {
		// The session moved on while we were resolving; drop the result.
		slog.Debug("discarding stale resolution", "guild", s.guildID, "query", ref.Raw)
		return
	}
	s.resolveCancel = nil

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		slog.Warn("dropping unresolvable reference",
			"guild", s.guildID,
			"query", ref.Raw,
			"error", err,
		)
		s.publisher.PublishResolutionFailed(domain.ResolutionFailedEvent{
			GuildID:   s.guildID,
			Reference: ref,
			Err:       err,
		})
		s.startNextLocked()
		return
	}

	startCtx, cancel := context.WithTimeout(s.ctx, s.driverTimeout)
	defer cancel()
	if err := s.driver.Start(startCtx, s.guildID, ref, track); err != nil {
		slog.Error("driver failed to start track",
			"guild", s.guildID,
			"track", track.Title,
			"error", err,
		)
		s.publisher.PublishResolutionFailed(domain.ResolutionFailedEvent{
			GuildID:   s.guildID,
			Reference: ref,
			Err:       err,
		})
		s.startNextLocked()
		return
	}

	s.current = track
	s.currentRef = ref
	s.ledger = domain.NewPauseLedger(time.Now())
	s.state = domain.StatePlaying

	s.publisher.PublishPlaybackStarted(domain.PlaybackStartedEvent{
		GuildID:     s.guildID,
		ReferenceID: ref.ID,
		Track:       track,
	})
}

package infrastructure

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jukebot/jukebot/internal/modules/music_player/application/ports"
	"github.com/jukebot/jukebot/internal/modules/music_player/domain"
)

// DefaultEventBufferSize is the default buffer size for event channels.
const DefaultEventBufferSize = 100

var (
	_ ports.EventPublisher  = (*ChannelEventBus)(nil)
	_ ports.EventSubscriber = (*ChannelEventBus)(nil)
)

// ChannelEventBus is a channel-backed asynchronous event bus. Publishing
// never blocks; each event type has one dispatcher goroutine, so handlers
// for a given type observe events in publish order. Completion signals
// rely on that ordering.
type ChannelEventBus struct {
	trackEnded       chan domain.TrackEndedEvent
	playbackStarted  chan domain.PlaybackStartedEvent
	resolutionFailed chan domain.ResolutionFailedEvent
	sessionIdle      chan domain.SessionIdleEvent

	trackEndedHandlers       []func(context.Context, domain.TrackEndedEvent)
	playbackStartedHandlers  []func(context.Context, domain.PlaybackStartedEvent)
	resolutionFailedHandlers []func(context.Context, domain.ResolutionFailedEvent)
	sessionIdleHandlers      []func(context.Context, domain.SessionIdleEvent)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
	mu     sync.RWMutex
}

// NewChannelEventBus creates a bus with the given buffer size and starts
// its dispatchers.
func NewChannelEventBus(bufferSize int) *ChannelEventBus {
	if bufferSize <= 0 {
		bufferSize = DefaultEventBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	bus := &ChannelEventBus{
		trackEnded:       make(chan domain.TrackEndedEvent, bufferSize),
		playbackStarted:  make(chan domain.PlaybackStartedEvent, bufferSize),
		resolutionFailed: make(chan domain.ResolutionFailedEvent, bufferSize),
		sessionIdle:      make(chan domain.SessionIdleEvent, bufferSize),
		ctx:              ctx,
		cancel:           cancel,
	}

	bus.wg.Add(4)
	go bus.dispatchTrackEnded()
	go bus.dispatchPlaybackStarted()
	go bus.dispatchResolutionFailed()
	go bus.dispatchSessionIdle()

	return bus
}

func (b *ChannelEventBus) dispatchTrackEnded() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-b.trackEnded:
			if !ok {
				return
			}
			b.mu.RLock()
			handlers := b.trackEndedHandlers
			b.mu.RUnlock()
			for _, handler := range handlers {
				handler(b.ctx, event)
			}
		}
	}
}

func (b *ChannelEventBus) dispatchPlaybackStarted() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-b.playbackStarted:
			if !ok {
				return
			}
			b.mu.RLock()
			handlers := b.playbackStartedHandlers
			b.mu.RUnlock()
			for _, handler := range handlers {
				handler(b.ctx, event)
			}
		}
	}
}

func (b *ChannelEventBus) dispatchResolutionFailed() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-b.resolutionFailed:
			if !ok {
				return
			}
			b.mu.RLock()
			handlers := b.resolutionFailedHandlers
			b.mu.RUnlock()
			for _, handler := range handlers {
				handler(b.ctx, event)
			}
		}
	}
}

func (b *ChannelEventBus) dispatchSessionIdle() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-b.sessionIdle:
			if !ok {
				return
			}
			b.mu.RLock()
			handlers := b.sessionIdleHandlers
			b.mu.RUnlock()
			for _, handler := range handlers {
				handler(b.ctx, event)
			}
		}
	}
}

// PublishTrackEnded publishes a TrackEndedEvent. Non-blocking: when the
// buffer is full the event is dropped with a warning.
func (b *ChannelEventBus) PublishTrackEnded(event domain.TrackEndedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		slog.Warn("attempted to publish to closed event bus", "type", "TrackEnded")
		return
	}

	select {
	case b.trackEnded <- event:
		slog.Debug("published event", "type", "TrackEnded", "guild", event.GuildID)
	default:
		slog.Warn("event buffer full, dropping event", "type", "TrackEnded")
	}
}

// PublishPlaybackStarted publishes a PlaybackStartedEvent. Non-blocking.
func (b *ChannelEventBus) PublishPlaybackStarted(event domain.PlaybackStartedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		slog.Warn("attempted to publish to closed event bus", "type", "PlaybackStarted")
		return
	}

	select {
	case b.playbackStarted <- event:
		slog.Debug("published event", "type", "PlaybackStarted", "guild", event.GuildID)
	default:
		slog.Warn("event buffer full, dropping event", "type", "PlaybackStarted")
	}
}

// PublishResolutionFailed publishes a ResolutionFailedEvent. Non-blocking.
func (b *ChannelEventBus) PublishResolutionFailed(event domain.ResolutionFailedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		slog.Warn("attempted to publish to closed event bus", "type", "ResolutionFailed")
		return
	}

	select {
	case b.resolutionFailed <- event:
		slog.Debug("published event", "type", "ResolutionFailed", "guild", event.GuildID)
	default:
		slog.Warn("event buffer full, dropping event", "type", "ResolutionFailed")
	}
}

// PublishSessionIdle publishes a SessionIdleEvent. Non-blocking.
func (b *ChannelEventBus) PublishSessionIdle(event domain.SessionIdleEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		slog.Warn("attempted to publish to closed event bus", "type", "SessionIdle")
		return
	}

	select {
	case b.sessionIdle <- event:
		slog.Debug("published event", "type", "SessionIdle", "guild", event.GuildID)
	default:
		slog.Warn("event buffer full, dropping event", "type", "SessionIdle")
	}
}

// OnTrackEnded registers a handler for TrackEndedEvent.
func (b *ChannelEventBus) OnTrackEnded(handler func(context.Context, domain.TrackEndedEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trackEndedHandlers = append(b.trackEndedHandlers, handler)
}

// OnPlaybackStarted registers a handler for PlaybackStartedEvent.
func (b *ChannelEventBus) OnPlaybackStarted(
	handler func(context.Context, domain.PlaybackStartedEvent),
) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.playbackStartedHandlers = append(b.playbackStartedHandlers, handler)
}

// OnResolutionFailed registers a handler for ResolutionFailedEvent.
func (b *ChannelEventBus) OnResolutionFailed(
	handler func(context.Context, domain.ResolutionFailedEvent),
) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resolutionFailedHandlers = append(b.resolutionFailedHandlers, handler)
}

// OnSessionIdle registers a handler for SessionIdleEvent.
func (b *ChannelEventBus) OnSessionIdle(handler func(context.Context, domain.SessionIdleEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessionIdleHandlers = append(b.sessionIdleHandlers, handler)
}

// Close stops the dispatchers and waits for them to finish. Publishing
// after Close is a logged no-op.
func (b *ChannelEventBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()

	close(b.trackEnded)
	close(b.playbackStarted)
	close(b.resolutionFailed)
	close(b.sessionIdle)

	b.wg.Wait()

	slog.Debug("channel event bus closed")
}

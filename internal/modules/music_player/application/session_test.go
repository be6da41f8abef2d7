package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/jukebot/jukebot/internal/modules/music_player/application/ports"
	"github.com/jukebot/jukebot/internal/modules/music_player/domain"
)

const testGuildID = snowflake.ID(100)

type stubExtractor struct {
	mu    sync.Mutex
	calls []string
	load  func(ctx context.Context, query string) (*ports.LoadResult, error)
}

func (e *stubExtractor) Load(ctx context.Context, query string) (*ports.LoadResult, error) {
	e.mu.Lock()
	e.calls = append(e.calls, query)
	e.mu.Unlock()
	return e.load(ctx, query)
}

func (e *stubExtractor) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

func singleTrackResult(title string) *ports.LoadResult {
	return &ports.LoadResult{
		Type: ports.LoadTypeTrack,
		Tracks: []*ports.TrackInfo{{
			Encoded:  "enc:" + title,
			Title:    title,
			Artist:   "artist",
			Duration: 3 * time.Minute,
			URI:      "https://example.com/" + title,
		}},
	}
}

// extractEcho resolves any query to a single track titled after the query.
func extractEcho(_ context.Context, query string) (*ports.LoadResult, error) {
	title := strings.TrimPrefix(query, DefaultSearchSource+":")
	return singleTrackResult(title), nil
}

type stubDriver struct {
	mu       sync.Mutex
	started  []domain.TrackReference
	stops    int
	pauses   int
	resumes  int
	startErr error
}

func (d *stubDriver) Start(_ context.Context, _ snowflake.ID, ref domain.TrackReference, _ *domain.Track) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.startErr != nil {
		return d.startErr
	}
	d.started = append(d.started, ref)
	return nil
}

func (d *stubDriver) Stop(context.Context, snowflake.ID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stops++
	return nil
}

func (d *stubDriver) Pause(context.Context, snowflake.ID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pauses++
	return nil
}

func (d *stubDriver) Resume(context.Context, snowflake.ID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resumes++
	return nil
}

func (d *stubDriver) IsActive(snowflake.ID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.started) > 0
}

func (d *stubDriver) stopCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stops
}

type recordingPublisher struct {
	mu       sync.Mutex
	started  []domain.PlaybackStartedEvent
	failed   []domain.ResolutionFailedEvent
	idle     []domain.SessionIdleEvent
}

func (p *recordingPublisher) PublishTrackEnded(domain.TrackEndedEvent) {}

func (p *recordingPublisher) PublishPlaybackStarted(event domain.PlaybackStartedEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = append(p.started, event)
}

func (p *recordingPublisher) PublishResolutionFailed(event domain.ResolutionFailedEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = append(p.failed, event)
}

func (p *recordingPublisher) PublishSessionIdle(event domain.SessionIdleEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idle = append(p.idle, event)
}

func (p *recordingPublisher) startedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.started)
}

func (p *recordingPublisher) failedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.failed)
}

func (p *recordingPublisher) lastStarted() domain.PlaybackStartedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started[len(p.started)-1]
}

func newTestSession(extractor *stubExtractor, driver *stubDriver, publisher *recordingPublisher) *Session {
	resolver := NewResolver(extractor)
	resolver.backoff = time.Millisecond
	return NewSession(testGuildID, snowflake.ID(200), resolver, driver, publisher)
}

func waitUntil(t *testing.T, description string, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", description)
}

func TestSessionEnqueueStartsPlayback(t *testing.T) {
	extractor := &stubExtractor{load: extractEcho}
	driver := &stubDriver{}
	publisher := &recordingPublisher{}
	session := newTestSession(extractor, driver, publisher)
	defer session.Close()

	position := session.Enqueue(domain.NewTrackReference("first song"))
	if position != 1 {
		t.Errorf("expected position 1 for enqueue on idle session, got %d", position)
	}

	waitUntil(t, "playback to start", func() bool {
		return session.State() == domain.StatePlaying
	})

	event := publisher.lastStarted()
	if event.Track.Title != "first song" {
		t.Errorf("expected started track %q, got %q", "first song", event.Track.Title)
	}
	if event.GuildID != testGuildID {
		t.Errorf("expected guild %d, got %d", testGuildID, event.GuildID)
	}
	if session.QueueLen() != 0 {
		t.Errorf("expected empty queue, got %d pending", session.QueueLen())
	}
}

func TestSessionAdvancesInEnqueueOrder(t *testing.T) {
	extractor := &stubExtractor{load: extractEcho}
	driver := &stubDriver{}
	publisher := &recordingPublisher{}
	session := newTestSession(extractor, driver, publisher)
	defer session.Close()

	session.Enqueue(domain.NewTrackReference("a"))
	waitUntil(t, "first track to start", func() bool {
		return session.State() == domain.StatePlaying
	})

	if pos := session.Enqueue(domain.NewTrackReference("b")); pos != 1 {
		t.Errorf("expected queue position 1, got %d", pos)
	}
	if pos := session.Enqueue(domain.NewTrackReference("c")); pos != 2 {
		t.Errorf("expected queue position 2, got %d", pos)
	}

	for _, want := range []string{"a", "b", "c"} {
		waitUntil(t, "track "+want+" to start", func() bool {
			return publisher.startedCount() > 0 && publisher.lastStarted().Track.Title == want
		})
		session.HandleTrackEnd(domain.TrackEndedEvent{
			GuildID:     testGuildID,
			ReferenceID: publisher.lastStarted().ReferenceID,
			Reason:      domain.TrackEndFinished,
		})
	}

	waitUntil(t, "session to go idle", func() bool {
		return session.State() == domain.StateIdle
	})
	if publisher.startedCount() != 3 {
		t.Errorf("expected 3 playback starts, got %d", publisher.startedCount())
	}
}

func TestSessionDropsUnresolvableReferences(t *testing.T) {
	extractor := &stubExtractor{
		load: func(context.Context, string) (*ports.LoadResult, error) {
			return nil, errors.New("backend down")
		},
	}
	driver := &stubDriver{}
	publisher := &recordingPublisher{}
	session := newTestSession(extractor, driver, publisher)
	defer session.Close()

	session.EnqueueAll(
		domain.NewTrackReference("a"),
		domain.NewTrackReference("b"),
		domain.NewTrackReference("c"),
	)

	waitUntil(t, "all references to fail", func() bool {
		return publisher.failedCount() == 3
	})
	waitUntil(t, "session to go idle", func() bool {
		return session.State() == domain.StateIdle
	})

	if session.QueueLen() != 0 {
		t.Errorf("expected empty queue, got %d pending", session.QueueLen())
	}
	// three attempts per reference
	if got := extractor.callCount(); got != 9 {
		t.Errorf("expected 9 extraction attempts, got %d", got)
	}
	if publisher.startedCount() != 0 {
		t.Errorf("expected no playback starts, got %d", publisher.startedCount())
	}
}

func TestSessionFailedTrackAdvancesLikeCompletion(t *testing.T) {
	extractor := &stubExtractor{load: extractEcho}
	driver := &stubDriver{}
	publisher := &recordingPublisher{}
	session := newTestSession(extractor, driver, publisher)
	defer session.Close()

	session.Enqueue(domain.NewTrackReference("a"))
	session.Enqueue(domain.NewTrackReference("b"))
	waitUntil(t, "first track to start", func() bool {
		return publisher.startedCount() == 1
	})

	session.HandleTrackEnd(domain.TrackEndedEvent{
		GuildID:     testGuildID,
		ReferenceID: publisher.lastStarted().ReferenceID,
		Reason:      domain.TrackEndFailed,
		Err:         errors.New("decoder error"),
	})

	waitUntil(t, "next track to start", func() bool {
		return publisher.startedCount() == 2
	})
	if got := publisher.lastStarted().Track.Title; got != "b" {
		t.Errorf("expected track b after failure, got %q", got)
	}
}

func TestSessionIgnoresStaleCompletion(t *testing.T) {
	extractor := &stubExtractor{load: extractEcho}
	driver := &stubDriver{}
	publisher := &recordingPublisher{}
	session := newTestSession(extractor, driver, publisher)
	defer session.Close()

	session.Enqueue(domain.NewTrackReference("a"))
	waitUntil(t, "track to start", func() bool {
		return session.State() == domain.StatePlaying
	})

	session.HandleTrackEnd(domain.TrackEndedEvent{
		GuildID:     testGuildID,
		ReferenceID: "not-the-current-reference",
		Reason:      domain.TrackEndFinished,
	})

	if got := session.State(); got != domain.StatePlaying {
		t.Errorf("expected session to keep playing after stale signal, got %v", got)
	}

	// a duplicate of a real completion is stale by the time it arrives
	refID := publisher.lastStarted().ReferenceID
	end := domain.TrackEndedEvent{
		GuildID:     testGuildID,
		ReferenceID: refID,
		Reason:      domain.TrackEndFinished,
	}
	session.HandleTrackEnd(end)
	session.HandleTrackEnd(end)

	waitUntil(t, "session to go idle", func() bool {
		return session.State() == domain.StateIdle
	})
	if publisher.startedCount() != 1 {
		t.Errorf("expected 1 playback start, got %d", publisher.startedCount())
	}
}

func TestSessionReplacedSignalForOldTrackIsStale(t *testing.T) {
	extractor := &stubExtractor{load: extractEcho}
	driver := &stubDriver{}
	publisher := &recordingPublisher{}
	session := newTestSession(extractor, driver, publisher)
	defer session.Close()

	session.Enqueue(domain.NewTrackReference("a"))
	waitUntil(t, "first track to start", func() bool {
		return session.State() == domain.StatePlaying
	})
	oldRefID := publisher.lastStarted().ReferenceID

	// stop and immediately start something new, before the driver delivers
	// the end signal for the old track
	session.ClearAndStop(context.Background())
	session.Enqueue(domain.NewTrackReference("b"))
	waitUntil(t, "second track to start", func() bool {
		return publisher.startedCount() == 2
	})

	session.HandleTrackEnd(domain.TrackEndedEvent{
		GuildID:     testGuildID,
		ReferenceID: oldRefID,
		Reason:      domain.TrackEndReplaced,
	})

	if got := session.State(); got != domain.StatePlaying {
		t.Errorf("expected new track to keep playing, got %v", got)
	}
	snap := session.Snapshot(time.Now())
	if snap.Title != "b" {
		t.Errorf("expected current track %q, got %q", "b", snap.Title)
	}
}

// hangingDriver blocks Start until the passed context expires.
type hangingDriver struct {
	stubDriver
}

func (d *hangingDriver) Start(ctx context.Context, _ snowflake.ID, _ domain.TrackReference, _ *domain.Track) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestSessionBoundsDriverStart(t *testing.T) {
	extractor := &stubExtractor{load: extractEcho}
	driver := &hangingDriver{}
	publisher := &recordingPublisher{}

	resolver := NewResolver(extractor)
	resolver.backoff = time.Millisecond
	session := NewSession(testGuildID, snowflake.ID(200), resolver, driver, publisher)
	session.driverTimeout = 10 * time.Millisecond
	defer session.Close()

	session.Enqueue(domain.NewTrackReference("a"))

	// the wedged driver call must expire and the session settle into idle
	// well before the wait deadline
	waitUntil(t, "session to give up on the wedged driver", func() bool {
		return session.State() == domain.StateIdle
	})
	if publisher.failedCount() != 1 {
		t.Errorf("expected 1 failed reference, got %d", publisher.failedCount())
	}
}

func TestSessionSkipWhilePlayingStopsDriver(t *testing.T) {
	extractor := &stubExtractor{load: extractEcho}
	driver := &stubDriver{}
	publisher := &recordingPublisher{}
	session := newTestSession(extractor, driver, publisher)
	defer session.Close()

	session.Enqueue(domain.NewTrackReference("a"))
	session.Enqueue(domain.NewTrackReference("b"))
	waitUntil(t, "first track to start", func() bool {
		return publisher.startedCount() == 1
	})

	if !session.Skip(context.Background()) {
		t.Fatal("expected skip to succeed while playing")
	}
	if driver.stopCount() != 1 {
		t.Fatalf("expected 1 driver stop, got %d", driver.stopCount())
	}

	// the driver reports the stop as a completion signal
	session.HandleTrackEnd(domain.TrackEndedEvent{
		GuildID:     testGuildID,
		ReferenceID: publisher.lastStarted().ReferenceID,
		Reason:      domain.TrackEndStopped,
	})

	waitUntil(t, "next track to start", func() bool {
		return publisher.startedCount() == 2
	})
	if got := publisher.lastStarted().Track.Title; got != "b" {
		t.Errorf("expected track b after skip, got %q", got)
	}
}

func TestSessionSkipWhileResolvingCancelsAndAdvances(t *testing.T) {
	release := make(chan struct{})
	var queries []string
	var queriesMu sync.Mutex
	extractor := &stubExtractor{
		load: func(ctx context.Context, query string) (*ports.LoadResult, error) {
			queriesMu.Lock()
			queries = append(queries, query)
			first := len(queries) == 1
			queriesMu.Unlock()
			if first {
				// hang until skipped
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-release:
				}
			}
			return extractEcho(ctx, query)
		},
	}
	driver := &stubDriver{}
	publisher := &recordingPublisher{}
	session := newTestSession(extractor, driver, publisher)
	defer session.Close()
	defer close(release)

	session.Enqueue(domain.NewTrackReference("slow"))
	session.Enqueue(domain.NewTrackReference("next"))
	waitUntil(t, "resolution to start", func() bool {
		return extractor.callCount() == 1
	})

	if !session.Skip(context.Background()) {
		t.Fatal("expected skip to succeed while resolving")
	}

	waitUntil(t, "next track to start", func() bool {
		return publisher.startedCount() == 1
	})
	if got := publisher.lastStarted().Track.Title; got != "next" {
		t.Errorf("expected track next after skipping resolution, got %q", got)
	}
	if driver.stopCount() != 0 {
		t.Errorf("expected no driver stop while resolving, got %d", driver.stopCount())
	}
}

func TestSessionSkipWhenIdle(t *testing.T) {
	extractor := &stubExtractor{load: extractEcho}
	session := newTestSession(extractor, &stubDriver{}, &recordingPublisher{})
	defer session.Close()

	if session.Skip(context.Background()) {
		t.Error("expected skip to fail on idle session")
	}
}

func TestSessionPauseResume(t *testing.T) {
	extractor := &stubExtractor{load: extractEcho}
	driver := &stubDriver{}
	publisher := &recordingPublisher{}
	session := newTestSession(extractor, driver, publisher)
	defer session.Close()

	ctx := context.Background()
	if session.Pause(ctx) {
		t.Error("expected pause to fail while idle")
	}

	session.Enqueue(domain.NewTrackReference("a"))
	waitUntil(t, "track to start", func() bool {
		return session.State() == domain.StatePlaying
	})

	if !session.Pause(ctx) {
		t.Fatal("expected pause to succeed while playing")
	}
	if got := session.State(); got != domain.StatePaused {
		t.Fatalf("expected paused state, got %v", got)
	}
	if session.Pause(ctx) {
		t.Error("expected second pause to fail")
	}
	if session.Resume(ctx) != true {
		t.Fatal("expected resume to succeed while paused")
	}
	if got := session.State(); got != domain.StatePlaying {
		t.Errorf("expected playing state after resume, got %v", got)
	}
	if session.Resume(ctx) {
		t.Error("expected second resume to fail")
	}
}

func TestSessionPauseFreezesElapsed(t *testing.T) {
	extractor := &stubExtractor{load: extractEcho}
	session := newTestSession(extractor, &stubDriver{}, &recordingPublisher{})
	defer session.Close()

	session.Enqueue(domain.NewTrackReference("a"))
	waitUntil(t, "track to start", func() bool {
		return session.State() == domain.StatePlaying
	})
	if !session.Pause(context.Background()) {
		t.Fatal("pause failed")
	}

	first := session.Snapshot(time.Now()).Elapsed
	second := session.Snapshot(time.Now().Add(10 * time.Second)).Elapsed
	if first != second {
		t.Errorf("expected elapsed frozen while paused, got %v then %v", first, second)
	}
}

func TestSessionClearAndStop(t *testing.T) {
	extractor := &stubExtractor{load: extractEcho}
	driver := &stubDriver{}
	publisher := &recordingPublisher{}
	session := newTestSession(extractor, driver, publisher)
	defer session.Close()

	session.Enqueue(domain.NewTrackReference("a"))
	session.Enqueue(domain.NewTrackReference("b"))
	session.Enqueue(domain.NewTrackReference("c"))
	waitUntil(t, "first track to start", func() bool {
		return publisher.startedCount() == 1
	})
	refID := publisher.lastStarted().ReferenceID

	session.ClearAndStop(context.Background())

	if got := session.State(); got != domain.StateIdle {
		t.Errorf("expected idle state, got %v", got)
	}
	if session.QueueLen() != 0 {
		t.Errorf("expected empty queue, got %d pending", session.QueueLen())
	}
	if driver.stopCount() != 1 {
		t.Errorf("expected 1 driver stop, got %d", driver.stopCount())
	}

	// the stop's completion signal arrives after the session went idle
	session.HandleTrackEnd(domain.TrackEndedEvent{
		GuildID:     testGuildID,
		ReferenceID: refID,
		Reason:      domain.TrackEndStopped,
	})
	if got := session.State(); got != domain.StateIdle {
		t.Errorf("expected session to stay idle, got %v", got)
	}
	if publisher.startedCount() != 1 {
		t.Errorf("expected no further playback starts, got %d", publisher.startedCount())
	}
}

func TestSessionDriverStartFailureAdvances(t *testing.T) {
	extractor := &stubExtractor{load: extractEcho}
	driver := &stubDriver{startErr: errors.New("no voice connection")}
	publisher := &recordingPublisher{}
	session := newTestSession(extractor, driver, publisher)
	defer session.Close()

	session.Enqueue(domain.NewTrackReference("a"))

	waitUntil(t, "reference to be dropped", func() bool {
		return publisher.failedCount() == 1
	})
	waitUntil(t, "session to go idle", func() bool {
		return session.State() == domain.StateIdle
	})
}

func TestSessionShuffleRequiresTwoPending(t *testing.T) {
	extractor := &stubExtractor{load: extractEcho}
	session := newTestSession(extractor, &stubDriver{}, &recordingPublisher{})
	defer session.Close()

	if session.Shuffle() {
		t.Error("expected shuffle to fail with empty queue")
	}

	session.Enqueue(domain.NewTrackReference("a"))
	waitUntil(t, "track to start", func() bool {
		return session.State() == domain.StatePlaying
	})
	for i := 0; i < 5; i++ {
		session.Enqueue(domain.NewTrackReference(fmt.Sprintf("pending-%d", i)))
	}

	if !session.Shuffle() {
		t.Error("expected shuffle to succeed with five pending")
	}
	if session.QueueLen() != 5 {
		t.Errorf("expected 5 pending after shuffle, got %d", session.QueueLen())
	}
}

func TestSessionSnapshotWhilePlaying(t *testing.T) {
	extractor := &stubExtractor{load: extractEcho}
	session := newTestSession(extractor, &stubDriver{}, &recordingPublisher{})
	defer session.Close()

	session.Enqueue(domain.NewTrackReference("current song"))
	waitUntil(t, "track to start", func() bool {
		return session.State() == domain.StatePlaying
	})
	session.Enqueue(domain.NewTrackReference("up next"))

	snap := session.Snapshot(time.Now())
	if snap.Title != "current song" {
		t.Errorf("expected title %q, got %q", "current song", snap.Title)
	}
	if !snap.IsPlaying {
		t.Error("expected snapshot to report playing")
	}
	if len(snap.QueuePreview) != 1 {
		t.Fatalf("expected 1 preview entry, got %d", len(snap.QueuePreview))
	}
}

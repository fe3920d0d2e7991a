package tracker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/tabtime/internal/activity"
	"github.com/runnerr0/tabtime/internal/classify"
	"github.com/runnerr0/tabtime/internal/config"
)

var t0 = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

func testClassifier() *classify.Classifier {
	return classify.New(config.DefaultProductiveDomains())
}

func ms(n int) time.Time {
	return t0.Add(time.Duration(n) * time.Millisecond)
}

// --- Step ---

func TestStep_FocusChangeFinalizesPrevious(t *testing.T) {
	c := testClassifier()
	var st State

	st, rec := Step(st, Event{Kind: Focus, Tab: Tab{ID: 1, URL: "https://github.com/golang/go"}, At: ms(0)}, c)
	assert.Nil(t, rec)
	require.False(t, st.Idle())

	st, rec = Step(st, Event{Kind: Focus, Tab: Tab{ID: 2, URL: "https://www.youtube.com/watch?v=x"}, At: ms(5000)}, c)
	require.NotNil(t, rec)
	assert.Equal(t, "github.com", rec.Domain)
	assert.Equal(t, int64(5000), rec.Duration)
	assert.True(t, rec.IsProductive)
	assert.True(t, ms(5000).Equal(rec.Timestamp))
	assert.Equal(t, "2024-01-15", rec.Date)

	require.NotNil(t, st.Session)
	assert.Equal(t, 2, st.Session.Tab.ID, "youtube.com remains open")
	assert.True(t, ms(5000).Equal(st.Session.Start))
}

func TestStep_AtMostOneSession(t *testing.T) {
	c := testClassifier()
	var st State
	var emitted int

	urls := []string{"https://a.com", "https://b.com", "https://c.com", "https://a.com"}
	for i, u := range urls {
		var rec *activity.Record
		st, rec = Step(st, Event{Kind: Focus, Tab: Tab{ID: i, URL: u}, At: ms(i * 1000)}, c)
		if rec != nil {
			emitted++
		}
		require.NotNil(t, st.Session)
		assert.Equal(t, i, st.Session.Tab.ID)
	}
	assert.Equal(t, len(urls)-1, emitted)
}

func TestStep_ZeroLengthDiscarded(t *testing.T) {
	c := testClassifier()
	st, _ := Step(State{}, Event{Kind: Focus, Tab: Tab{ID: 1, URL: "https://a.com"}, At: ms(100)}, c)

	st, rec := Step(st, Event{Kind: Focus, Tab: Tab{ID: 2, URL: "https://b.com"}, At: ms(100)}, c)
	assert.Nil(t, rec)
	assert.Equal(t, 2, st.Session.Tab.ID)

	_, rec = Step(st, Event{Kind: Blur, At: ms(50)}, c)
	assert.Nil(t, rec, "negative durations are discarded too")
}

func TestStep_EmptyURLDiscarded(t *testing.T) {
	c := testClassifier()
	st, _ := Step(State{}, Event{Kind: Focus, Tab: Tab{ID: 1}, At: ms(0)}, c)
	require.False(t, st.Idle())

	st, rec := Step(st, Event{Kind: Blur, At: ms(3000)}, c)
	assert.Nil(t, rec)
	assert.True(t, st.Idle())
}

func TestStep_MalformedURL(t *testing.T) {
	c := testClassifier()
	st, _ := Step(State{}, Event{Kind: Focus, Tab: Tab{ID: 1, URL: "::not a url"}, At: ms(0)}, c)

	_, rec := Step(st, Event{Kind: Blur, At: ms(1000)}, c)
	require.NotNil(t, rec)
	assert.Equal(t, classify.UnknownDomain, rec.Domain)
	assert.False(t, rec.IsProductive)
}

func TestStep_Close(t *testing.T) {
	c := testClassifier()
	st, _ := Step(State{}, Event{Kind: Focus, Tab: Tab{ID: 7, URL: "https://reddit.com/r/golang"}, At: ms(0)}, c)

	same, rec := Step(st, Event{Kind: Close, Tab: Tab{ID: 8}, At: ms(1000)}, c)
	assert.Nil(t, rec, "closing another tab is a no-op")
	assert.Equal(t, st, same)

	idle, rec := Step(st, Event{Kind: Close, Tab: Tab{ID: 7}, At: ms(2000)}, c)
	require.NotNil(t, rec)
	assert.True(t, idle.Idle())
	assert.Equal(t, "reddit.com", rec.Domain)
	assert.Equal(t, int64(2000), rec.Duration)
	assert.False(t, rec.IsProductive)

	_, rec = Step(State{}, Event{Kind: Close, Tab: Tab{ID: 7}, At: ms(3000)}, c)
	assert.Nil(t, rec)
}

func TestStep_BlurAndTick(t *testing.T) {
	c := testClassifier()

	st, rec := Step(State{}, Event{Kind: Blur, At: ms(0)}, c)
	assert.Nil(t, rec)
	assert.True(t, st.Idle())

	st, _ = Step(st, Event{Kind: Focus, Tab: Tab{ID: 1, URL: "https://stackoverflow.com/q/1"}, At: ms(0)}, c)
	ticked, rec := Step(st, Event{Kind: Tick, At: ms(500)}, c)
	assert.Nil(t, rec)
	assert.Equal(t, st, ticked)

	st, rec = Step(ticked, Event{Kind: Blur, At: ms(1500)}, c)
	require.NotNil(t, rec)
	assert.Equal(t, int64(1500), rec.Duration)
	assert.True(t, rec.IsProductive)
	assert.True(t, st.Idle())
}

func TestStep_BackwardsTimestampsNeverOverlap(t *testing.T) {
	c := testClassifier()
	events := []Event{
		{Kind: Focus, Tab: Tab{ID: 1, URL: "https://a.com"}, At: ms(0)},
		{Kind: Focus, Tab: Tab{ID: 2, URL: "https://b.com"}, At: ms(10000)},
		{Kind: Focus, Tab: Tab{ID: 3, URL: "https://c.com"}, At: ms(5000)},
		{Kind: Focus, Tab: Tab{ID: 4, URL: "https://d.com"}, At: ms(20000)},
		{Kind: Blur, At: ms(15000)},
		{Kind: Focus, Tab: Tab{ID: 5, URL: "https://e.com"}, At: ms(12000)},
		{Kind: Close, Tab: Tab{ID: 5}, At: ms(30000)},
	}

	var st State
	var recs []*activity.Record
	for _, ev := range events {
		var rec *activity.Record
		st, rec = Step(st, ev, c)
		if rec != nil {
			recs = append(recs, rec)
		}
	}

	require.Len(t, recs, 3)
	assert.Equal(t, []string{"a.com", "c.com", "e.com"}, []string{recs[0].Domain, recs[1].Domain, recs[2].Domain})
	assert.Equal(t, int64(10000), recs[1].Duration, "c.com starts where a.com ended")

	var prevEnd time.Time
	for _, r := range recs {
		start := r.Timestamp.Add(-time.Duration(r.Duration) * time.Millisecond)
		assert.False(t, start.Before(prevEnd), "%s starts at %s before %s", r.Domain, start, prevEnd)
		prevEnd = r.Timestamp
	}
}

func TestEventKind_String(t *testing.T) {
	assert.Equal(t, "focus", Focus.String())
	assert.Equal(t, "close", Close.String())
	assert.Equal(t, "blur", Blur.String())
	assert.Equal(t, "tick", Tick.String())
	assert.Equal(t, "unknown", EventKind(42).String())
}

// --- Tracker ---

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type recorder struct {
	mu      sync.Mutex
	stored  []activity.Record
	sent    []activity.Record
	failing bool
}

func (r *recorder) Append(rec activity.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return errors.New("disk full")
	}
	r.stored = append(r.stored, rec)
	return nil
}

func (r *recorder) Send(rec activity.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, rec)
}

func (r *recorder) snapshot() ([]activity.Record, []activity.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]activity.Record(nil), r.stored...), append([]activity.Record(nil), r.sent...)
}

func startTracker(t *testing.T, clock *fakeClock, r *recorder) (*Tracker, context.CancelFunc, <-chan error) {
	t.Helper()
	tr := New(testClassifier(),
		WithClock(clock.Now),
		WithStore(r),
		WithSender(r),
		WithTickInterval(0),
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()
	t.Cleanup(cancel)
	return tr, cancel, done
}

func TestTracker_FocusChangeAndShutdown(t *testing.T) {
	clock := &fakeClock{now: ms(0)}
	r := &recorder{}
	tr, cancel, done := startTracker(t, clock, r)
	ctx := context.Background()

	require.NoError(t, tr.Focus(ctx, Tab{ID: 1, URL: "https://github.com/"}))
	clock.Set(ms(5000))
	require.NoError(t, tr.Focus(ctx, Tab{ID: 2, URL: "https://youtube.com/"}))

	require.Eventually(t, func() bool {
		stored, _ := r.snapshot()
		return len(stored) == 1
	}, time.Second, 5*time.Millisecond)

	stored, sent := r.snapshot()
	assert.Equal(t, "github.com", stored[0].Domain)
	assert.Equal(t, int64(5000), stored[0].Duration)
	require.Len(t, sent, 1)
	assert.Equal(t, stored[0], sent[0])

	clock.Set(ms(8000))
	cancel()
	require.NoError(t, <-done)

	stored, _ = r.snapshot()
	require.Len(t, stored, 2, "open session is finalized on shutdown")
	assert.Equal(t, "youtube.com", stored[1].Domain)
	assert.Equal(t, int64(3000), stored[1].Duration)
	assert.False(t, tr.Current().Tracking)
}

func TestTracker_QueuedEventsAppliedBeforeShutdown(t *testing.T) {
	clock := &fakeClock{now: ms(0)}
	r := &recorder{}
	tr := New(testClassifier(), WithClock(clock.Now), WithStore(r), WithTickInterval(0), WithQueueSize(8))
	ctx := context.Background()

	// Queue before Run starts so the drain path has work.
	require.NoError(t, tr.Focus(ctx, Tab{ID: 1, URL: "https://a.com"}))
	clock.Set(ms(1000))
	require.NoError(t, tr.Close(ctx, 1))
	clock.Set(ms(2000))
	require.NoError(t, tr.Focus(ctx, Tab{ID: 2, URL: "https://b.com"}))
	clock.Set(ms(2500))

	runCtx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, tr.Run(runCtx))

	stored, _ := r.snapshot()
	require.Len(t, stored, 2)
	assert.Equal(t, "a.com", stored[0].Domain)
	assert.Equal(t, int64(1000), stored[0].Duration)
	assert.Equal(t, "b.com", stored[1].Domain)
	assert.Equal(t, int64(500), stored[1].Duration)

	assert.ErrorIs(t, tr.Blur(ctx), ErrStopped)
}

func TestTracker_CurrentSnapshot(t *testing.T) {
	clock := &fakeClock{now: ms(0)}
	tr, _, _ := startTracker(t, clock, &recorder{})
	ctx := context.Background()

	assert.False(t, tr.Current().Tracking)

	require.NoError(t, tr.Focus(ctx, Tab{ID: 3, URL: "https://www.github.com/x"}))
	require.Eventually(t, func() bool { return tr.Current().Tracking }, time.Second, 5*time.Millisecond)

	snap := tr.Current()
	assert.Equal(t, 3, snap.TabID)
	assert.Equal(t, "github.com", snap.Domain)
	assert.True(t, snap.IsProductive)

	clock.Set(ms(4000))
	require.NoError(t, tr.Submit(ctx, Event{Kind: Tick}))
	require.Eventually(t, func() bool { return tr.Current().Elapsed == 4*time.Second }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(4000), tr.Current().Duration)
	assert.True(t, tr.Current().Tracking, "ticks never change state")
}

func TestTracker_StoreFailureStillSends(t *testing.T) {
	clock := &fakeClock{now: ms(0)}
	r := &recorder{failing: true}
	tr, _, _ := startTracker(t, clock, r)
	ctx := context.Background()

	require.NoError(t, tr.Focus(ctx, Tab{ID: 1, URL: "https://a.com"}))
	clock.Set(ms(1000))
	require.NoError(t, tr.Blur(ctx))

	require.Eventually(t, func() bool {
		_, sent := r.snapshot()
		return len(sent) == 1
	}, time.Second, 5*time.Millisecond)

	stored, _ := r.snapshot()
	assert.Empty(t, stored)
}

func TestTracker_SubmitHonorsContext(t *testing.T) {
	tr := New(testClassifier(), WithQueueSize(1), WithTickInterval(0))
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, tr.Blur(ctx))
	cancel()
	assert.ErrorIs(t, tr.Blur(ctx), context.Canceled, "queue is full and nobody is reading")
}

func TestTracker_TickerRefreshesSnapshot(t *testing.T) {
	clock := &fakeClock{now: ms(0)}
	tr := New(testClassifier(), WithClock(clock.Now), WithTickInterval(5*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.Run(ctx) //nolint:errcheck

	require.NoError(t, tr.Focus(ctx, Tab{ID: 1, URL: "https://a.com"}))
	clock.Set(ms(2000))

	require.Eventually(t, func() bool { return tr.Current().Elapsed == 2*time.Second }, time.Second, 5*time.Millisecond)
}

func TestTracker_AcceptedEventsAreAlwaysApplied(t *testing.T) {
	for round := 0; round < 20; round++ {
		tr := New(testClassifier(), WithTickInterval(0), WithQueueSize(4))
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- tr.Run(ctx) }()

		var accepted atomic.Int64
		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					if tr.Focus(context.Background(), Tab{ID: id, URL: "https://a.com"}) == nil {
						accepted.Add(1)
					}
				}
			}(g)
		}
		cancel()
		wg.Wait()
		require.NoError(t, <-done)

		assert.Equal(t, accepted.Load(), tr.Processed(), "round %d", round)
		assert.ErrorIs(t, tr.Blur(context.Background()), ErrStopped)
	}
}

func TestTracker_IdleCapBoundsShutdownSession(t *testing.T) {
	clock := &fakeClock{now: t0.AddDate(2, 0, 0)}
	r := &recorder{}
	tr := New(testClassifier(), WithClock(clock.Now), WithStore(r), WithTickInterval(0), WithIdleCap(30*time.Minute))
	ctx := context.Background()

	require.NoError(t, tr.Submit(ctx, Event{Kind: Focus, Tab: Tab{ID: 1, URL: "https://a.com"}, At: ms(0)}))
	require.NoError(t, tr.Submit(ctx, Event{Kind: Focus, Tab: Tab{ID: 2, URL: "https://b.com"}, At: ms(60000)}))

	runCtx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, tr.Run(runCtx))

	stored, _ := r.snapshot()
	require.Len(t, stored, 2)
	assert.Equal(t, int64(60000), stored[0].Duration)
	assert.Equal(t, "b.com", stored[1].Domain)
	assert.Equal(t, (30 * time.Minute).Milliseconds(), stored[1].Duration, "replayed session stops at the cap, not two years later")
	assert.Equal(t, int64(2), tr.Processed())
}

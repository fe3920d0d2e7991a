package tracker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/runnerr0/tabtime/internal/activity"
	"github.com/runnerr0/tabtime/internal/classify"
	"github.com/runnerr0/tabtime/internal/logging"
)

// ErrStopped is returned by Submit once Run has returned.
var ErrStopped = errors.New("tracker stopped")

// Appender receives every finalized record, e.g. the local holding area.
type Appender interface {
	Append(rec activity.Record) error
}

// Sender receives every finalized record for remote delivery.
type Sender interface {
	Send(rec activity.Record)
}

// Snapshot is a read-only view of the current session for display.
type Snapshot struct {
	Tracking     bool          `json:"isTracking"`
	TabID        int           `json:"tabId,omitempty"`
	URL          string        `json:"url,omitempty"`
	Domain       string        `json:"domain,omitempty"`
	IsProductive bool          `json:"isProductive"`
	Start        time.Time     `json:"start,omitempty"`
	Elapsed      time.Duration `json:"-"`
	Duration     int64         `json:"duration"` // milliseconds
}

// Tracker owns the tracking State. Run is the only goroutine that reads or
// writes it; everything else talks to the tracker through Submit.
type Tracker struct {
	classifier *classify.Classifier
	store      Appender
	sender     Sender
	log        hclog.Logger
	now        func() time.Time
	tick       time.Duration
	idleCap    time.Duration

	// mu orders Submit against shutdown: Submit sends under the read lock,
	// and Run takes the write lock after closing done, before its last drain.
	mu        sync.RWMutex
	events    chan Event
	done      chan struct{}
	processed atomic.Int64
	current   atomic.Pointer[Snapshot]
}

// Option configures a Tracker.
type Option func(*Tracker)

func WithStore(a Appender) Option { return func(t *Tracker) { t.store = a } }

func WithSender(s Sender) Option { return func(t *Tracker) { t.sender = s } }

func WithLogger(l hclog.Logger) Option { return func(t *Tracker) { t.log = l } }

func WithClock(now func() time.Time) Option { return func(t *Tracker) { t.now = now } }

// WithTickInterval sets how often the elapsed snapshot refreshes. Zero
// disables ticking.
func WithTickInterval(d time.Duration) Option { return func(t *Tracker) { t.tick = d } }

// WithIdleCap bounds how long after the last event the open session may run
// when Run stops. Zero finalizes at the current time.
func WithIdleCap(d time.Duration) Option { return func(t *Tracker) { t.idleCap = d } }

// WithQueueSize sets the event buffer length.
func WithQueueSize(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.events = make(chan Event, n)
		}
	}
}

// New creates an idle Tracker. Call Run to start processing events.
func New(c *classify.Classifier, opts ...Option) *Tracker {
	t := &Tracker{
		classifier: c,
		now:        time.Now,
		tick:       time.Second,
		events:     make(chan Event, 64),
		done:       make(chan struct{}),
	}
	for _, o := range opts {
		o(t)
	}
	t.log = logging.OrDiscard(t.log).Named("tracker")
	t.current.Store(&Snapshot{})
	return t
}

// Submit queues ev. A zero At is stamped with the current time so events are
// timed by arrival. A nil return means Run will apply ev.
func (t *Tracker) Submit(ctx context.Context, ev Event) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	select {
	case <-t.done:
		return ErrStopped
	default:
	}
	if ev.At.IsZero() {
		ev.At = t.now()
	}
	select {
	case t.events <- ev:
		return nil
	case <-t.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Focus reports that tab became the focused, loaded tab.
func (t *Tracker) Focus(ctx context.Context, tab Tab) error {
	return t.Submit(ctx, Event{Kind: Focus, Tab: tab})
}

// Close reports that the tab with the given ID was removed.
func (t *Tracker) Close(ctx context.Context, tabID int) error {
	return t.Submit(ctx, Event{Kind: Close, Tab: Tab{ID: tabID}})
}

// Blur reports that the browser lost focus.
func (t *Tracker) Blur(ctx context.Context) error {
	return t.Submit(ctx, Event{Kind: Blur})
}

// Processed returns how many submitted events Run has applied.
func (t *Tracker) Processed() int64 {
	return t.processed.Load()
}

// Current returns the latest published snapshot.
func (t *Tracker) Current() Snapshot {
	return *t.current.Load()
}

// Run processes events until ctx is cancelled. Every event accepted by Submit
// is applied, then the open session is finalized at the current time, capped
// by WithIdleCap.
func (t *Tracker) Run(ctx context.Context) error {
	var tickC <-chan time.Time
	if t.tick > 0 {
		ticker := time.NewTicker(t.tick)
		defer ticker.Stop()
		tickC = ticker.C
	}

	var st State
	for {
		select {
		case ev := <-t.events:
			st = t.apply(st, ev)
			t.processed.Add(1)

		case <-tickC:
			st = t.apply(st, Event{Kind: Tick, At: t.now()})

		case <-ctx.Done():
			close(t.done)
			t.mu.Lock()
			t.mu.Unlock() //nolint:staticcheck
		drain:
			for {
				select {
				case ev := <-t.events:
					st = t.apply(st, ev)
					t.processed.Add(1)
				default:
					break drain
				}
			}
			t.apply(st, Event{Kind: Blur, At: t.stopAt(st)})
			t.log.Debug("tracker stopped", "events", t.processed.Load())
			return nil
		}
	}
}

// stopAt is the instant the open session ends at shutdown.
func (t *Tracker) stopAt(st State) time.Time {
	end := t.now()
	if t.idleCap > 0 && !st.Last.IsZero() && end.Sub(st.Last) > t.idleCap {
		end = st.Last.Add(t.idleCap)
	}
	return end
}

func (t *Tracker) apply(st State, ev Event) State {
	next, rec := Step(st, ev, t.classifier)
	if rec != nil {
		t.emit(*rec)
	}
	if ev.Kind != Tick {
		t.log.Trace("event", "kind", ev.Kind, "tab", ev.Tab.ID, "idle", next.Idle())
	}
	t.publish(next, ev.At)
	return next
}

func (t *Tracker) emit(rec activity.Record) {
	t.log.Debug("session finalized", "domain", rec.Domain, "duration", rec.Duration, "productive", rec.IsProductive)

	if t.store != nil {
		if err := t.store.Append(rec); err != nil {
			t.log.Error("failed to store record locally", "domain", rec.Domain, "error", err)
		}
	}
	if t.sender != nil {
		t.sender.Send(rec)
	}
}

func (t *Tracker) publish(st State, at time.Time) {
	if st.Session == nil {
		t.current.Store(&Snapshot{})
		return
	}
	s := st.Session
	t.current.Store(&Snapshot{
		Tracking:     true,
		TabID:        s.Tab.ID,
		URL:          s.Tab.URL,
		Domain:       classify.ExtractDomain(s.Tab.URL),
		IsProductive: t.classifier.Classify(s.Tab.URL) == classify.Productive,
		Start:        s.Start,
		Elapsed:      at.Sub(s.Start),
		Duration:     at.Sub(s.Start).Milliseconds(),
	})
}

package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/runnerr0/tabtime/internal/activity"
	"github.com/runnerr0/tabtime/internal/classify"
	"github.com/runnerr0/tabtime/internal/localstore"
	"github.com/runnerr0/tabtime/internal/syncer"
	"github.com/runnerr0/tabtime/internal/tracker"
)

// tabEvent is one JSON line on stdin, shaped after the browser's tab
// callbacks:
//
//	{"event":"activated","tabId":3,"url":"https://go.dev","title":"Go"}
//	{"event":"updated","tabId":3,"url":"https://go.dev/doc","status":"complete","active":true}
//	{"event":"removed","tabId":3}
//	{"event":"blur"}
//
// ts is optional; without it the event is timed on arrival.
type tabEvent struct {
	Event  string    `json:"event"`
	TabID  int       `json:"tabId"`
	URL    string    `json:"url"`
	Title  string    `json:"title"`
	Status string    `json:"status"`
	Active bool      `json:"active"`
	TS     time.Time `json:"ts"`
}

// toEvent maps a line to a tracker event. ok is false for updates that do
// not change what is being viewed.
func (e tabEvent) toEvent() (ev tracker.Event, ok bool, err error) {
	tab := tracker.Tab{ID: e.TabID, URL: e.URL, Title: e.Title}
	switch e.Event {
	case "activated":
		return tracker.Event{Kind: tracker.Focus, Tab: tab, At: e.TS}, true, nil
	case "updated":
		if e.Status != "complete" || !e.Active {
			return ev, false, nil
		}
		return tracker.Event{Kind: tracker.Focus, Tab: tab, At: e.TS}, true, nil
	case "removed":
		return tracker.Event{Kind: tracker.Close, Tab: tracker.Tab{ID: e.TabID}, At: e.TS}, true, nil
	case "blur":
		return tracker.Event{Kind: tracker.Blur, At: e.TS}, true, nil
	}
	return ev, false, fmt.Errorf("unknown event %q", e.Event)
}

// countingAppender forwards to the holding area and counts what it stored.
type countingAppender struct {
	next     tracker.Appender
	recorded int
	millis   int64
}

func (a *countingAppender) Append(rec activity.Record) error {
	if err := a.next.Append(rec); err != nil {
		return err
	}
	a.recorded++
	a.millis += rec.Duration
	return nil
}

type trackSummary struct {
	Events   int           `json:"events"`
	Skipped  int           `json:"skipped"`
	Recorded int           `json:"recorded"`
	TotalMs  int64         `json:"total_ms"`
	Holding  string        `json:"holding_path"`
	Sync     *syncer.Stats `json:"sync,omitempty"`
}

// Execute implements the go-flags Commander interface for TrackCommand.
func (c *TrackCommand) Execute(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return c.run(ctx)
}

// run consumes stdin until EOF or ctx ends, then finalizes the open session.
func (c *TrackCommand) run(ctx context.Context) error {
	cfg, err := c.deps.config()
	if err != nil {
		return err
	}
	log := c.deps.logger(cfg)

	holding, err := cfg.HoldingPath()
	if err != nil {
		return err
	}
	local := localstore.New(holding,
		localstore.WithRetentionDays(cfg.Retention.Days),
		localstore.WithClock(c.deps.clock),
	)
	sink := &countingAppender{next: local}

	opts := []tracker.Option{
		tracker.WithStore(sink),
		tracker.WithLogger(log),
		tracker.WithClock(c.deps.clock),
		tracker.WithTickInterval(time.Duration(cfg.Tracker.TickSeconds) * time.Second),
		tracker.WithQueueSize(cfg.Tracker.QueueSize),
		tracker.WithIdleCap(time.Duration(cfg.Tracker.IdleCapMinutes) * time.Minute),
	}
	var sender *syncer.Sender
	if cfg.Sync.Enabled && !c.NoSync {
		sender = syncer.New(cfg.Sync, log)
		opts = append(opts, tracker.WithSender(sender))
	}
	tr := tracker.New(classify.New(cfg.Classifier.ProductiveDomains), opts...)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- tr.Run(runCtx) }()

	sum := trackSummary{Holding: holding}
	scanner := bufio.NewScanner(c.deps.input())
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var te tabEvent
		if err := json.Unmarshal(line, &te); err != nil {
			log.Warn("skipping malformed event", "error", err)
			sum.Skipped++
			continue
		}
		ev, ok, err := te.toEvent()
		if err != nil {
			log.Warn("skipping event", "error", err)
			sum.Skipped++
			continue
		}
		if !ok {
			continue
		}
		if err := tr.Submit(ctx, ev); err != nil {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		log.Error("reading events", "error", err)
	}

	cancel()
	if err := <-errCh; err != nil {
		return fmt.Errorf("tracker: %w", err)
	}
	if sender != nil {
		sender.Wait()
		st := sender.Stats()
		sum.Sync = &st
	}
	sum.Events = int(tr.Processed())
	sum.Recorded = sink.recorded
	sum.TotalMs = sink.millis

	if c.deps.jsonOutput() {
		return printJSON(sum)
	}
	fmt.Printf("Tracked %d events, recorded %d records (%s)\n", sum.Events, sum.Recorded, formatMillis(sum.TotalMs))
	if sum.Skipped > 0 {
		fmt.Printf("Skipped %d unreadable events\n", sum.Skipped)
	}
	if sum.Sync != nil {
		fmt.Printf("Sync: %d sent, %d failed, %d dropped\n", sum.Sync.Sent, sum.Sync.Failed, sum.Sync.Dropped)
	}
	return nil
}

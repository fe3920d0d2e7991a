// Package syncer forwards finalized records to the remote time-log endpoint.
// Delivery is best effort: each record is posted once, failures are logged
// and counted, and nothing is retried.
package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/runnerr0/tabtime/internal/activity"
	"github.com/runnerr0/tabtime/internal/config"
	"github.com/runnerr0/tabtime/internal/logging"
)

// Stats counts send outcomes since the Sender was created.
type Stats struct {
	Sent    int64 `json:"sent"`
	Failed  int64 `json:"failed"`
	Dropped int64 `json:"dropped"`
}

// Sender posts records asynchronously with a bounded number in flight.
type Sender struct {
	endpoint string
	client   *http.Client
	log      hclog.Logger

	slots chan struct{}
	wg    sync.WaitGroup

	sent, failed, dropped atomic.Int64
}

// New builds a Sender from the sync config section.
func New(cfg config.SyncConfig, log hclog.Logger) *Sender {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	inFlight := cfg.MaxInFlight
	if inFlight <= 0 {
		inFlight = 16
	}
	return &Sender{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: timeout},
		log:      logging.OrDiscard(log).Named("sync"),
		slots:    make(chan struct{}, inFlight),
	}
}

// Send queues rec for delivery and returns immediately. When every slot is
// busy the record is dropped.
func (s *Sender) Send(rec activity.Record) {
	select {
	case s.slots <- struct{}{}:
	default:
		s.dropped.Add(1)
		s.log.Warn("too many sends in flight, dropping record", "domain", rec.Domain, "duration", rec.Duration)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() { <-s.slots }()

		if err := s.post(context.Background(), rec); err != nil {
			s.failed.Add(1)
			s.log.Error("failed to sync record", "domain", rec.Domain, "error", err)
			return
		}
		s.sent.Add(1)
		s.log.Debug("synced record", "domain", rec.Domain, "duration", rec.Duration)
	}()
}

// Wait blocks until every in-flight send has finished.
func (s *Sender) Wait() {
	s.wg.Wait()
}

// Stats returns a snapshot of the counters.
func (s *Sender) Stats() Stats {
	return Stats{
		Sent:    s.sent.Load(),
		Failed:  s.failed.Load(),
		Dropped: s.dropped.Load(),
	}
}

func (s *Sender) post(ctx context.Context, rec activity.Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post record: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("post record: unexpected status %d", resp.StatusCode)
	}
	return nil
}

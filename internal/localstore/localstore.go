// Package localstore keeps recently finalized records in a single
// compressed file so they survive when the sync endpoint is unreachable.
package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/runnerr0/tabtime/internal/activity"
)

// DefaultRetentionDays bounds how long Append keeps records.
const DefaultRetentionDays = 30

// bag is the on-disk document. All records live under one key.
type bag struct {
	TimeLogs []activity.Record `json:"timeLogs"`
}

// Store is a file-backed holding area. Every write rewrites the whole file.
// There is no uniqueness: appending the same record twice stores it twice.
type Store struct {
	path      string
	retention int
	now       func() time.Time

	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithRetentionDays overrides how many days Append keeps.
func WithRetentionDays(days int) Option {
	return func(s *Store) {
		if days > 0 {
			s.retention = days
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a Store persisting to path. The file is created on first Append.
func New(path string, opts ...Option) *Store {
	s := &Store{path: path, retention: DefaultRetentionDays, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Append adds rec and drops everything whose timestamp is not after
// now minus the retention window.
func (s *Store) Append(rec activity.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.load()
	if err != nil {
		return err
	}
	b.TimeLogs = append(b.TimeLogs, rec)
	b.TimeLogs, _ = keepAfter(b.TimeLogs, s.cutoff(s.retention))

	return s.save(b)
}

// All returns every held record in stored order.
func (s *Store) All() ([]activity.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.load()
	if err != nil {
		return nil, err
	}
	return b.TimeLogs, nil
}

// ListRecentDays returns records from the last n days, oldest first.
func (s *Store) ListRecentDays(n int) ([]activity.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.load()
	if err != nil {
		return nil, err
	}
	recent, _ := keepAfter(b.TimeLogs, s.cutoff(n))
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].Timestamp.Before(recent[j].Timestamp)
	})
	return recent, nil
}

// Prune drops records older than the given number of days and reports how
// many were removed.
func (s *Store) Prune(olderThanDays int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.load()
	if err != nil {
		return 0, err
	}
	var removed int
	b.TimeLogs, removed = keepAfter(b.TimeLogs, s.cutoff(olderThanDays))
	if removed == 0 {
		return 0, nil
	}
	return removed, s.save(b)
}

func (s *Store) cutoff(days int) time.Time {
	return s.now().AddDate(0, 0, -days)
}

func keepAfter(recs []activity.Record, cutoff time.Time) ([]activity.Record, int) {
	kept := make([]activity.Record, 0, len(recs))
	for _, r := range recs {
		if r.Timestamp.After(cutoff) {
			kept = append(kept, r)
		}
	}
	return kept, len(recs) - len(kept)
}

func (s *Store) load() (*bag, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &bag{TimeLogs: []activity.Record{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open holding file: %w", err)
	}
	defer f.Close()

	decoder, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer decoder.Close()

	b := &bag{}
	if err := json.NewDecoder(decoder).Decode(b); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode holding file: %w", err)
	}
	if b.TimeLogs == nil {
		b.TimeLogs = []activity.Record{}
	}
	return b, nil
}

// save writes to a temp file in the same directory and renames it over the
// old one, so readers see either the previous bag or the new one.
func (s *Store) save(b *bag) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create holding dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".holding-*.zst")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	encoder, err := zstd.NewWriter(tmp)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("create zstd encoder: %w", err)
	}
	if err := json.NewEncoder(encoder).Encode(b); err != nil {
		encoder.Close()
		tmp.Close()
		return fmt.Errorf("encode holding file: %w", err)
	}
	if err := encoder.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("finalize compression: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace holding file: %w", err)
	}
	return nil
}

package cli

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/runnerr0/tabtime/internal/activity"
	"github.com/runnerr0/tabtime/internal/classify"
	"github.com/runnerr0/tabtime/internal/storage"
)

// Execute implements the go-flags Commander interface for AddCommand.
func (c *AddCommand) Execute(args []string) error {
	if c.URL == "" && c.Domain == "" {
		return fmt.Errorf("--url or --domain is required for add command")
	}
	if c.Duration == "" {
		return fmt.Errorf("--duration is required for add command")
	}

	store, release, err := c.deps.openStore()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer release()

	return c.executeWithStore(store)
}

// executeWithStore runs the add logic against a provided store (used by tests).
func (c *AddCommand) executeWithStore(store *storage.SQLiteStore) error {
	rec, err := c.build()
	if err != nil {
		return err
	}

	if err := store.AddRecord(context.Background(), rec); err != nil {
		return fmt.Errorf("storing record: %w", err)
	}

	if c.deps.jsonOutput() {
		return printJSON(toJSONRecord(*rec))
	}

	fmt.Printf("Added record %s (%s)\n", rec.ID, rec.Timestamp.Format(time.RFC3339))
	fmt.Printf("  Domain:   %s\n", rec.Domain)
	fmt.Printf("  Duration: %s\n", formatMillis(rec.Duration))
	fmt.Printf("  Class:    %s\n", productiveLabel(rec.IsProductive))
	return nil
}

// build validates the flags and classifies the entry. An explicit
// --productive or --unproductive wins over the allow-list.
func (c *AddCommand) build() (*activity.Record, error) {
	if c.URL != "" && c.Domain != "" {
		return nil, fmt.Errorf("--url and --domain are mutually exclusive")
	}
	if c.Productive && c.Unproductive {
		return nil, fmt.Errorf("--productive and --unproductive are mutually exclusive")
	}

	dur, err := time.ParseDuration(c.Duration)
	if err != nil {
		return nil, fmt.Errorf("invalid --duration value %q: %w", c.Duration, err)
	}
	if dur < 0 {
		return nil, fmt.Errorf("--duration must not be negative")
	}

	at := c.deps.clock()
	if c.At != "" {
		at, err = time.Parse(time.RFC3339, c.At)
		if err != nil {
			return nil, fmt.Errorf("invalid --at value %q: %w", c.At, err)
		}
	}

	cfg, err := c.deps.config()
	if err != nil {
		return nil, err
	}
	cl := classify.New(cfg.Classifier.ProductiveDomains)

	var productive bool
	domain := strings.TrimSpace(c.Domain)
	if c.URL != "" {
		parsed, err := url.ParseRequestURI(c.URL)
		if err != nil || parsed.Host == "" {
			return nil, fmt.Errorf("invalid URL: %s", c.URL)
		}
		domain = classify.ExtractDomain(c.URL)
		productive = cl.Classify(c.URL) == classify.Productive
	} else {
		productive = cl.IsProductiveDomain(domain)
	}

	switch {
	case c.Productive:
		productive = true
	case c.Unproductive:
		productive = false
	}

	rec := activity.New(domain, c.URL, c.Title, dur, productive, at)
	return &rec, nil
}

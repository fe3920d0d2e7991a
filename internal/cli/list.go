package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/runnerr0/tabtime/internal/activity"
	"github.com/runnerr0/tabtime/internal/analytics"
	"github.com/runnerr0/tabtime/internal/storage"
)

// Execute implements the go-flags Commander interface for ListCommand.
func (c *ListCommand) Execute(args []string) error {
	store, release, err := c.deps.openStore()
	if err != nil {
		return err
	}
	defer release()

	return c.executeWithStore(store)
}

// executeWithStore runs the listing against a provided store (for testing).
func (c *ListCommand) executeWithStore(store *storage.SQLiteStore) error {
	q, err := c.query()
	if err != nil {
		return err
	}

	recs, total, err := store.ListRecords(context.Background(), q)
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}

	if c.deps.jsonOutput() {
		return c.printJSON(recs, total)
	}
	return c.printHuman(recs, total)
}

func (c *ListCommand) query() (storage.RecordQuery, error) {
	q := storage.RecordQuery{
		Domain: c.Domain,
		Limit:  c.Limit,
		Offset: c.Offset,
	}
	if q.Limit <= 0 {
		return q, fmt.Errorf("--limit must be positive")
	}
	if q.Offset < 0 {
		return q, fmt.Errorf("--offset must not be negative")
	}

	if c.Date != "" {
		if !analytics.ValidateDate(c.Date) {
			return q, fmt.Errorf("invalid --date value %q: want YYYY-MM-DD", c.Date)
		}
		q.Date = c.Date
	} else if c.Since != "" {
		dur, err := parseDuration(c.Since)
		if err != nil {
			return q, fmt.Errorf("invalid --since value %q: %w", c.Since, err)
		}
		now := c.deps.clock()
		q.StartDate = activity.DateOnly(now.Add(-dur))
		q.EndDate = activity.DateOnly(now)
	}

	switch c.Productive {
	case "yes":
		b := true
		q.IsProductive = &b
	case "no":
		b := false
		q.IsProductive = &b
	}
	return q, nil
}

func (c *ListCommand) printHuman(recs []activity.Record, total int64) error {
	if len(recs) == 0 {
		fmt.Println("No records found")
		return nil
	}

	fmt.Printf("Showing %d of %s records\n\n", len(recs), formatNumber(total))
	for i, r := range recs {
		fmt.Printf("%d. %s  %s  %s\n", i+1+c.Offset, r.Domain, formatMillis(r.Duration), productiveLabel(r.IsProductive))
		if r.Title != "" {
			fmt.Printf("   %s\n", r.Title)
		}
		fmt.Printf("   %s · %s\n", r.Timestamp.Local().Format("2006-01-02 15:04"), r.ID)
	}
	return nil
}

type jsonRecord struct {
	ID           string `json:"id"`
	Domain       string `json:"domain"`
	Duration     int64  `json:"duration"`
	IsProductive bool   `json:"isProductive"`
	Timestamp    string `json:"timestamp"`
	Date         string `json:"date"`
	URL          string `json:"url,omitempty"`
	Title        string `json:"title,omitempty"`
}

type jsonListOutput struct {
	Count   int          `json:"count"`
	Total   int64        `json:"total"`
	Records []jsonRecord `json:"records"`
}

func toJSONRecord(r activity.Record) jsonRecord {
	return jsonRecord{
		ID:           r.ID,
		Domain:       r.Domain,
		Duration:     r.Duration,
		IsProductive: r.IsProductive,
		Timestamp:    r.Timestamp.UTC().Format(time.RFC3339),
		Date:         r.Date,
		URL:          r.URL,
		Title:        r.Title,
	}
}

func (c *ListCommand) printJSON(recs []activity.Record, total int64) error {
	out := jsonListOutput{
		Count:   len(recs),
		Total:   total,
		Records: make([]jsonRecord, len(recs)),
	}
	for i, r := range recs {
		out.Records[i] = toJSONRecord(r)
	}
	return printJSON(out)
}

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/runnerr0/tabtime/internal/activity"
	"github.com/runnerr0/tabtime/internal/storage"
)

// Execute implements the go-flags Commander interface for ShowCommand.
func (c *ShowCommand) Execute(args []string) error {
	if c.ID == "" {
		return fmt.Errorf("--id is required for show command")
	}

	store, release, err := c.deps.openStore()
	if err != nil {
		return err
	}
	defer release()

	return c.executeWithStore(store)
}

// executeWithStore prints the record from a provided store (for testing).
func (c *ShowCommand) executeWithStore(store *storage.SQLiteStore) error {
	rec, err := store.GetRecord(context.Background(), c.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("record not found: %s", c.ID)
	}
	if err != nil {
		return err
	}

	if c.deps.jsonOutput() || c.Format == "json" {
		return printJSON(toJSONRecord(*rec))
	}

	switch c.Format {
	case "url":
		fmt.Println(rec.URL)
	default:
		c.outputFull(rec)
	}
	return nil
}

func (c *ShowCommand) outputFull(rec *activity.Record) {
	fmt.Println(rec.ID)
	fmt.Printf("Domain:     %s\n", rec.Domain)
	fmt.Printf("Duration:   %s (%d ms)\n", formatMillis(rec.Duration), rec.Duration)
	fmt.Printf("Class:      %s\n", productiveLabel(rec.IsProductive))
	fmt.Printf("Finalized:  %s\n", rec.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("Date:       %s\n", rec.Date)
	if rec.URL != "" {
		fmt.Printf("URL:        %s\n", rec.URL)
	}
	if rec.Title != "" {
		fmt.Printf("Title:      %s\n", rec.Title)
	}
	if rec.UserAgent != "" {
		fmt.Printf("Agent:      %s\n", rec.UserAgent)
	}
}

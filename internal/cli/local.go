package cli

import (
	"fmt"

	"github.com/runnerr0/tabtime/internal/activity"
	"github.com/runnerr0/tabtime/internal/localstore"
)

// Execute implements the go-flags Commander interface for LocalCommand.
func (c *LocalCommand) Execute(args []string) error {
	if c.Days < 1 {
		return fmt.Errorf("--days must be at least 1")
	}

	cfg, err := c.deps.config()
	if err != nil {
		return err
	}
	path, err := cfg.HoldingPath()
	if err != nil {
		return err
	}
	store := localstore.New(path,
		localstore.WithRetentionDays(cfg.Retention.Days),
		localstore.WithClock(c.deps.clock),
	)

	recs, err := store.ListRecentDays(c.Days)
	if err != nil {
		return fmt.Errorf("read holding area: %w", err)
	}

	if c.deps.jsonOutput() {
		out := struct {
			Path    string       `json:"path"`
			Days    int          `json:"days"`
			Count   int          `json:"count"`
			Records []jsonRecord `json:"records"`
		}{Path: path, Days: c.Days, Count: len(recs), Records: make([]jsonRecord, len(recs))}
		for i, r := range recs {
			out.Records[i] = toJSONRecord(r)
		}
		return printJSON(out)
	}

	printLocal(path, c.Days, recs)
	return nil
}

func printLocal(path string, days int, recs []activity.Record) {
	if len(recs) == 0 {
		fmt.Printf("No records held in %s for the last %d days\n", path, days)
		return
	}
	fmt.Printf("%d records held in %s (last %d days)\n\n", len(recs), path, days)
	for _, r := range recs {
		fmt.Printf("  %s  %-28s %10s  %s\n", r.Timestamp.Local().Format("2006-01-02 15:04"),
			r.Domain, formatMillis(r.Duration), productiveLabel(r.IsProductive))
	}
}

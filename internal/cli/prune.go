package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/runnerr0/tabtime/internal/localstore"
	"github.com/runnerr0/tabtime/internal/storage"
)

type pruneJSON struct {
	Pruned      int64  `json:"pruned"`
	DryRun      bool   `json:"dry_run"`
	OlderThan   string `json:"older_than"`
	LocalPruned *int   `json:"local_pruned,omitempty"`
}

// Execute implements the go-flags Commander interface for PruneCommand.
func (c *PruneCommand) Execute(args []string) error {
	store, release, err := c.deps.openStore()
	if err != nil {
		return err
	}
	defer release()

	return c.executeWithStore(store)
}

// executeWithStore prunes a provided store (for testing).
func (c *PruneCommand) executeWithStore(store *storage.SQLiteStore) error {
	cfg, err := c.deps.config()
	if err != nil {
		return err
	}

	olderThan := c.OlderThan
	if olderThan == "" {
		olderThan = fmt.Sprintf("%dd", cfg.Retention.Days)
	}
	dur, err := parseDuration(olderThan)
	if err != nil {
		return err
	}
	if c.Local && dur < 24*time.Hour {
		return fmt.Errorf("--local needs an --older-than of at least 1d")
	}

	human := formatDurationHuman(dur)
	cutoff := c.deps.clock().Add(-dur)
	ctx := context.Background()

	count, err := store.CountExpired(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("count expired records: %w", err)
	}

	out := pruneJSON{Pruned: count, DryRun: c.DryRun, OlderThan: olderThan}

	if c.DryRun {
		if c.deps.jsonOutput() {
			return printJSON(out)
		}
		fmt.Printf("[DRY RUN] Would prune %d records older than %s\n", count, human)
		return nil
	}

	if count > 0 && !c.Force {
		fmt.Printf("Prune %d records older than %s. Proceed? [y/N]: ", count, human)
		answer, _ := c.deps.readLine()
		if a := strings.ToLower(answer); a != "y" && a != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if count > 0 {
		out.Pruned, err = store.PruneExpired(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("prune records: %w", err)
		}
	}

	if c.Local {
		path, err := cfg.HoldingPath()
		if err != nil {
			return err
		}
		n, err := localstore.New(path, localstore.WithClock(c.deps.clock)).Prune(int(dur / (24 * time.Hour)))
		if err != nil {
			return fmt.Errorf("prune holding area: %w", err)
		}
		out.LocalPruned = &n
	}

	if c.deps.jsonOutput() {
		return printJSON(out)
	}
	if out.Pruned == 0 {
		fmt.Printf("No records to prune (older than %s)\n", human)
	} else {
		fmt.Printf("Pruned %d records older than %s\n", out.Pruned, human)
	}
	if out.LocalPruned != nil {
		fmt.Printf("Pruned %d records from the holding area\n", *out.LocalPruned)
	}
	return nil
}

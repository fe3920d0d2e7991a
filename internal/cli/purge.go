package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/tabtime/internal/storage"
)

// Execute implements the go-flags Commander interface for PurgeCommand.
func (c *PurgeCommand) Execute(args []string) error {
	if !c.All {
		return fmt.Errorf("purge requires --all flag for safety")
	}

	store, release, err := c.deps.openStore()
	if err != nil {
		return err
	}
	defer release()

	return c.executeWithStore(store)
}

// executeWithStore purges a provided store (for testing).
func (c *PurgeCommand) executeWithStore(store *storage.SQLiteStore) error {
	if !c.All {
		return fmt.Errorf("purge requires --all flag for safety")
	}

	if !c.Force {
		fmt.Println("⚠ WARNING: This will permanently delete ALL stored time records.")
		fmt.Println("  The local holding area is not touched.")
		fmt.Println()
		fmt.Println("This action cannot be undone.")
		fmt.Println()
		fmt.Print(`Type "PURGE" to confirm: `)

		input, ok := c.deps.readLine()
		if !ok {
			return fmt.Errorf("aborted: no input received")
		}
		if input != "PURGE" {
			return fmt.Errorf("aborted: confirmation text did not match")
		}
	}

	if err := store.PurgeAll(context.Background()); err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}

	if c.deps.jsonOutput() {
		return printJSON(map[string]interface{}{
			"purged":  true,
			"message": "all records deleted",
		})
	}

	fmt.Println("Purged all records. The database is empty.")
	return nil
}

package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/runnerr0/tabtime/internal/analytics"
	"github.com/runnerr0/tabtime/internal/config"
	"github.com/runnerr0/tabtime/internal/localstore"
	"github.com/runnerr0/tabtime/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version           string           `json:"version"`
	DatabasePath      string           `json:"database_path"`
	DatabaseSizeBytes int64            `json:"database_size_bytes"`
	TotalRecords      int64            `json:"total_records"`
	TotalTimeMs       int64            `json:"total_time_ms"`
	ProductiveTimeMs  int64            `json:"productive_time_ms"`
	ProductivityScore float64          `json:"productivity_score"`
	OldestRecord      string           `json:"oldest_record,omitempty"`
	NewestRecord      string           `json:"newest_record,omitempty"`
	RetentionDays     int              `json:"retention_days"`
	LocalRecords      int              `json:"local_records"`
	TopDomains        []domainTimeJSON `json:"top_domains"`
	ServerRunning     bool             `json:"server_running"`
	SyncEnabled       bool             `json:"sync_enabled"`
	SchemaVersion     int              `json:"schema_version"`
}

type domainTimeJSON struct {
	Domain    string `json:"domain"`
	TotalTime int64  `json:"total_time_ms"`
	Sessions  int64  `json:"sessions"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	store, release, err := c.deps.openStore()
	if err != nil {
		return err
	}
	defer release()

	return c.executeWithStore(store)
}

// executeWithStore runs status against a provided store (for testing).
func (c *StatusCommand) executeWithStore(store *storage.SQLiteStore) error {
	cfg, err := c.deps.config()
	if err != nil {
		return err
	}

	stats, err := store.GetStats(context.Background())
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	dbPath, err := c.deps.dbPath()
	if err != nil {
		return err
	}
	var dbSize int64
	if info, err := os.Stat(dbPath); err == nil {
		dbSize = info.Size()
	}

	local := countLocal(cfg)
	running := checkServer(cfg)

	if c.deps.jsonOutput() {
		return c.printStatusJSON(cfg, stats, dbPath, dbSize, local, running)
	}
	return c.printStatusHuman(cfg, stats, dbPath, dbSize, local, running)
}

func (c *StatusCommand) printStatusHuman(cfg *config.Config, stats *storage.Stats, dbPath string, dbSize int64, local int, running bool) error {
	fmt.Println("tabtime status")
	fmt.Println("==============")
	fmt.Printf("Version:       %s\n", c.deps.version)
	fmt.Printf("Database:      %s (%s, schema v%d)\n", dbPath, formatBytes(dbSize), stats.SchemaVersion)
	fmt.Printf("Records:       %s\n", formatNumber(stats.TotalRecords))
	fmt.Printf("Tracked:       %s\n", formatMillis(stats.TotalDuration))
	if stats.TotalDuration > 0 {
		fmt.Printf("Productive:    %s (%.1f%%)\n", formatMillis(stats.ProductiveDuration),
			analytics.Score(stats.ProductiveDuration, stats.TotalDuration))
	}

	if stats.TotalRecords > 0 {
		fmt.Printf("Oldest:        %s\n", stats.OldestRecord.Local().Format("2006-01-02"))
		fmt.Printf("Newest:        %s\n", stats.NewestRecord.Local().Format("2006-01-02"))
	}

	fmt.Printf("Retention:     %d days\n", cfg.Retention.Days)
	fmt.Printf("Local:         %d records held\n", local)

	if len(stats.TopDomains) > 0 {
		fmt.Println()
		fmt.Println("Top Domains:")
		for _, d := range stats.TopDomains {
			fmt.Printf("  %-24s %10s  %s sessions\n", d.Domain, formatMillis(d.TotalTime), formatNumber(d.Sessions))
		}
	}

	fmt.Println()
	if running {
		fmt.Printf("Server:        running on %s\n", cfg.Addr())
	} else {
		fmt.Println("Server:        not running")
	}
	if cfg.Sync.Enabled {
		fmt.Printf("Sync:          %s\n", cfg.Sync.Endpoint)
	} else {
		fmt.Println("Sync:          disabled")
	}

	return nil
}

func (c *StatusCommand) printStatusJSON(cfg *config.Config, stats *storage.Stats, dbPath string, dbSize int64, local int, running bool) error {
	out := statusJSON{
		Version:           c.deps.version,
		DatabasePath:      dbPath,
		DatabaseSizeBytes: dbSize,
		TotalRecords:      stats.TotalRecords,
		TotalTimeMs:       stats.TotalDuration,
		ProductiveTimeMs:  stats.ProductiveDuration,
		ProductivityScore: analytics.Score(stats.ProductiveDuration, stats.TotalDuration),
		RetentionDays:     cfg.Retention.Days,
		LocalRecords:      local,
		SchemaVersion:     stats.SchemaVersion,
		TopDomains:        make([]domainTimeJSON, len(stats.TopDomains)),
		ServerRunning:     running,
		SyncEnabled:       cfg.Sync.Enabled,
	}

	if stats.TotalRecords > 0 {
		out.OldestRecord = stats.OldestRecord.UTC().Format(time.RFC3339)
		out.NewestRecord = stats.NewestRecord.UTC().Format(time.RFC3339)
	}

	for i, d := range stats.TopDomains {
		out.TopDomains[i] = domainTimeJSON{Domain: d.Domain, TotalTime: d.TotalTime, Sessions: d.Sessions}
	}

	return printJSON(out)
}

// countLocal returns how many records the holding area currently keeps.
func countLocal(cfg *config.Config) int {
	path, err := cfg.HoldingPath()
	if err != nil {
		return 0
	}
	recs, err := localstore.New(path).All()
	if err != nil {
		return 0
	}
	return len(recs)
}

// checkServer reports whether the HTTP service answers its health check
// within one second.
func checkServer(cfg *config.Config) bool {
	client := &http.Client{Timeout: 1 * time.Second}
	resp, err := client.Get("http://" + cfg.Addr() + "/api/v1/healthz")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// formatBytes formats a byte count into a human-readable string.
func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

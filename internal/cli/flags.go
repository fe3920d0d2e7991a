package cli

import (
	"io"
	"time"

	"github.com/runnerr0/tabtime/internal/config"
	"github.com/runnerr0/tabtime/internal/storage"
)

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	DBPath  string `long:"db-path" description:"Override the SQLite database path"`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable debug logging"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// deps are the injectable collaborators shared by every command. Tests set
// them directly; nil fields are resolved from the config at run time.
type deps struct {
	globals *GlobalFlags
	version string
	cfg     *config.Config
	store   *storage.SQLiteStore
	stdin   io.Reader
	now     func() time.Time
}

// StatusCommand shows database statistics and service reachability.
type StatusCommand struct {
	deps deps
}

// ListCommand lists stored time records with filters.
type ListCommand struct {
	Date       string `long:"date" description:"Only records for this day (YYYY-MM-DD)"`
	Since      string `long:"since" description:"Only records newer than duration (e.g., 7d, 24h, 2w)"`
	Domain     string `long:"domain" description:"Filter by domain"`
	Productive string `long:"productive" description:"Filter by classification" choice:"yes" choice:"no"`
	Limit      int    `long:"limit" description:"Maximum results" default:"20"`
	Offset     int    `long:"offset" description:"Skip first N results" default:"0"`

	deps deps
}

// ShowCommand prints one stored record.
type ShowCommand struct {
	ID     string `long:"id" description:"Record ID (required)"`
	Format string `long:"format" description:"Output format" choice:"full" choice:"json" choice:"url" default:"full"`

	deps deps
}

// AddCommand records a time entry by hand.
type AddCommand struct {
	URL          string `long:"url" description:"Page URL; the domain and classification are derived from it"`
	Domain       string `long:"domain" description:"Domain, when no URL is given"`
	Title        string `long:"title" description:"Page title"`
	Duration     string `long:"duration" description:"Time spent (e.g., 25m, 1h30m)"`
	At           string `long:"at" description:"Finalization time, RFC3339 (default now)"`
	Productive   bool   `long:"productive" description:"Force productive classification"`
	Unproductive bool   `long:"unproductive" description:"Force unproductive classification"`

	deps deps
}

// ServeCommand runs the HTTP ingestion and analytics service.
type ServeCommand struct {
	Host     string `long:"host" description:"Override listen host"`
	Port     int    `long:"port" description:"Override listen port"`
	LogLevel string `long:"log-level" description:"Override log level"`

	deps deps
}

// TrackCommand feeds tab lifecycle events from stdin into the tracker.
type TrackCommand struct {
	NoSync bool `long:"no-sync" description:"Keep records in the local holding area only"`

	deps deps
}

// ReportCommand renders one analytics view.
type ReportCommand struct {
	View  string `long:"view" description:"Which view to render" choice:"daily" choice:"weekly" choice:"top" choice:"productivity" choice:"domains" choice:"hourly" choice:"comparison" choice:"insights" default:"daily"`
	Date  string `long:"date" description:"Day for daily/top views (default today)"`
	Start string `long:"start" description:"Range start (YYYY-MM-DD)"`
	End   string `long:"end" description:"Range end (YYYY-MM-DD)"`
	Limit int    `long:"limit" description:"Domain limit for top/domains views"`
	Weeks int    `long:"weeks" description:"Trailing weeks for the comparison view" default:"4"`

	deps deps
}

// LocalCommand lists the local holding area.
type LocalCommand struct {
	Days int `long:"days" description:"Only records from the last N days" default:"7"`

	deps deps
}

// PruneCommand removes records older than the retention period.
type PruneCommand struct {
	OlderThan string `long:"older-than" description:"Override retention period (e.g., 30d)"`
	DryRun    bool   `long:"dry-run" description:"Show what would be pruned without deleting"`
	Force     bool   `long:"force" description:"Skip confirmation prompt"`
	Local     bool   `long:"local" description:"Also prune the local holding area"`

	deps deps
}

// PurgeCommand deletes ALL stored records with safety confirmation.
type PurgeCommand struct {
	All   bool `long:"all" description:"Required flag to confirm purge intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	deps deps
}

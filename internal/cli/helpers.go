package cli

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	_ "github.com/mattn/go-sqlite3"

	"github.com/runnerr0/tabtime/internal/config"
	"github.com/runnerr0/tabtime/internal/logging"
	"github.com/runnerr0/tabtime/internal/storage"
)

// config resolves the configuration once. An explicit --config must load.
// The default file falls back to built-in defaults only when it cannot be
// read or created; a file that is present but invalid fails the command.
func (d *deps) config() (*config.Config, error) {
	if d.cfg != nil {
		return d.cfg, nil
	}
	var cfg *config.Config
	var err error
	if d.globals != nil && d.globals.Config != "" {
		cfg, err = config.Load(d.globals.Config)
		if err != nil {
			return nil, err
		}
	} else {
		cfg, err = config.LoadOrCreate()
		if errors.Is(err, config.ErrInvalid) {
			return nil, err
		}
		if loadErr := err; loadErr != nil {
			cfg, err = config.Finish(config.DefaultConfig())
			if err != nil {
				return nil, err
			}
			d.logger(cfg).Warn("config file unavailable, using defaults", "error", loadErr)
		}
	}
	d.cfg = cfg
	return cfg, nil
}

// dbPath determines the SQLite database file path.
// Priority: --db-path flag > config file > default config.
func (d *deps) dbPath() (string, error) {
	if d.globals != nil && d.globals.DBPath != "" {
		return config.ExpandPath(d.globals.DBPath)
	}
	cfg, err := d.config()
	if err != nil {
		return "", err
	}
	return cfg.DBPath()
}

// openStore returns the injected store or opens the configured database,
// running migrations first. The returned func releases what was opened.
func (d *deps) openStore() (*storage.SQLiteStore, func(), error) {
	if d.store != nil {
		return d.store, func() {}, nil
	}
	cfg, err := d.config()
	if err != nil {
		return nil, nil, err
	}
	path, err := d.dbPath()
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	runner := storage.NewMigrationRunner(db).WithJournalMode(cfg.Storage.SQLiteJournalMode)
	applied, err := runner.Run()
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	if len(applied) > 0 {
		d.logger(cfg).Debug("schema migrated", "path", path, "versions", applied)
	}
	store, err := storage.NewSQLiteStore(db, storage.WithClock(d.clock))
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("init store: %w", err)
	}
	return store, func() {
		store.Close()
		db.Close()
	}, nil
}

// logger builds the root logger; --verbose forces debug level.
func (d *deps) logger(cfg *config.Config) hclog.Logger {
	lc := cfg.Logging
	if d.globals != nil && d.globals.Verbose {
		lc.Level = "debug"
	}
	return logging.New(lc, os.Stderr)
}

func (d *deps) clock() time.Time {
	if d.now != nil {
		return d.now()
	}
	return time.Now()
}

func (d *deps) input() io.Reader {
	if d.stdin != nil {
		return d.stdin
	}
	return os.Stdin
}

func (d *deps) jsonOutput() bool {
	return d.globals != nil && d.globals.JSON
}

// readLine reads a single trimmed line of user input.
func (d *deps) readLine() (string, bool) {
	scanner := bufio.NewScanner(d.input())
	if !scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(scanner.Text()), true
}

// spanUnits are the suffixes accepted by --older-than and --since.
var spanUnits = []struct {
	suffix byte
	name   string
	size   time.Duration
}{
	{'w', "week", 7 * 24 * time.Hour},
	{'d', "day", 24 * time.Hour},
	{'h', "hour", time.Hour},
	{'m', "minute", time.Minute},
}

// parseDuration reads spans like "30d", "2w", "24h" or "45m".
func parseDuration(s string) (time.Duration, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}
	for _, u := range spanUnits {
		if u.suffix == s[len(s)-1] {
			return time.Duration(n) * u.size, nil
		}
	}
	return 0, fmt.Errorf("invalid duration: %q (use w, d, h or m)", s)
}

// formatDurationHuman renders d in the largest whole day, hour or minute
// unit, e.g. "30 days" or "1 hour".
func formatDurationHuman(d time.Duration) string {
	for _, u := range spanUnits[1:] {
		if n := int64(d / u.size); n > 0 {
			if n == 1 {
				return "1 " + u.name
			}
			return fmt.Sprintf("%d %ss", n, u.name)
		}
	}
	return d.String()
}

// formatMillis renders a millisecond total as "2h 05m", "12m 30s" or "45s".
func formatMillis(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	h := int64(d / time.Hour)
	m := int64(d%time.Hour) / int64(time.Minute)
	s := int64(d%time.Minute) / int64(time.Second)
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %02dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// formatNumber formats an int64 with comma separators.
func formatNumber(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if i > 0 {
			result.WriteString(",")
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

func productiveLabel(p bool) string {
	if p {
		return "productive"
	}
	return "unproductive"
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package cli

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"os"
	"testing"
	"time"

	goflags "github.com/jessevdk/go-flags"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/tabtime/internal/activity"
	"github.com/runnerr0/tabtime/internal/config"
	"github.com/runnerr0/tabtime/internal/storage"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// openTestStore creates a migrated in-memory store.
func openTestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, merr := storage.NewMigrationRunner(db).Run()
	require.NoError(t, merr)

	store, err := storage.NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// testConfig returns defaults rooted in a temp dir, with sync and ticking
// off and the service port pointed somewhere nothing listens.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Storage.Path = t.TempDir()
	cfg.Sync.Enabled = false
	cfg.Tracker.TickSeconds = 0
	cfg.Server.Port = 1
	return cfg
}

// testDeps wires a command to store, a temp config and the fixed clock.
func testDeps(t *testing.T, store *storage.SQLiteStore) deps {
	t.Helper()
	return deps{
		globals: &GlobalFlags{},
		version: "test",
		cfg:     testConfig(t),
		store:   store,
		now:     func() time.Time { return testNow },
	}
}

// seed stores a record finalized at ts (RFC3339).
func seed(t *testing.T, store *storage.SQLiteStore, domain string, d time.Duration, productive bool, ts string) *activity.Record {
	t.Helper()
	at, err := time.Parse(time.RFC3339, ts)
	require.NoError(t, err)
	rec := activity.New(domain, "https://"+domain+"/", "", d, productive, at)
	require.NoError(t, store.AddRecord(context.Background(), &rec))
	return &rec
}

// parseOnly parses args without executing the matched command.
func parseOnly(t *testing.T, args ...string) *commands {
	t.Helper()
	p, _, c := buildParser("test")
	p.CommandHandler = func(goflags.Commander, []string) error { return nil }
	_, err := p.ParseArgs(args)
	require.NoError(t, err)
	return c
}

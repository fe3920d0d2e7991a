package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/tabtime/internal/config"
)

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"30d": 30 * 24 * time.Hour,
		"24h": 24 * time.Hour,
		"2w":  14 * 24 * time.Hour,
		"45m": 45 * time.Minute,
		"0d":  0,
	}
	for in, want := range cases {
		got, err := parseDuration(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "d", "abc", "10y", "-3d"} {
		_, err := parseDuration(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatDurationHuman(t *testing.T) {
	assert.Equal(t, "1 day", formatDurationHuman(24*time.Hour))
	assert.Equal(t, "30 days", formatDurationHuman(30*24*time.Hour))
	assert.Equal(t, "1 hour", formatDurationHuman(time.Hour))
	assert.Equal(t, "5 hours", formatDurationHuman(5*time.Hour))
	assert.Equal(t, "30 minutes", formatDurationHuman(30*time.Minute))
	assert.Equal(t, "0s", formatDurationHuman(0))
}

func TestFormatMillis(t *testing.T) {
	assert.Equal(t, "0s", formatMillis(0))
	assert.Equal(t, "45s", formatMillis(45_000))
	assert.Equal(t, "12m 30s", formatMillis(750_000))
	assert.Equal(t, "2h 05m", formatMillis(7_500_000))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "0", formatNumber(0))
	assert.Equal(t, "999", formatNumber(999))
	assert.Equal(t, "1,000", formatNumber(1000))
	assert.Equal(t, "12,345", formatNumber(12345))
	assert.Equal(t, "1,234,567", formatNumber(1234567))
}

func TestConfigFromExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  path: "+dir+"\n  sqlite_file: custom.db\nretention:\n  days: 7\n"), 0644))

	d := &deps{globals: &GlobalFlags{Config: path}}
	cfg, err := d.config()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Retention.Days)

	again, err := d.config()
	require.NoError(t, err)
	assert.Same(t, cfg, again, "config is resolved once")

	dbPath, err := d.dbPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "custom.db"), dbPath)
}

func TestConfigExplicitPathMustExist(t *testing.T) {
	d := &deps{globals: &GlobalFlags{Config: filepath.Join(t.TempDir(), "missing.yaml")}}
	_, err := d.config()
	assert.Error(t, err)
}

func writeDefaultConfig(t *testing.T, home, body string) {
	t.Helper()
	dir := filepath.Join(home, ".config", "tabtime")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0644))
}

func TestDefaultConfigInvalidFailsCommand(t *testing.T) {
	cases := map[string]string{
		"parsing config file": "retention: [\n",
		"retention.days":      "retention:\n  days: 0\n",
		"sync.endpoint":       "sync:\n  enabled: true\n  endpoint: \"\"\n",
	}
	for want, body := range cases {
		home := t.TempDir()
		t.Setenv("HOME", home)
		writeDefaultConfig(t, home, body)

		_, err := (&deps{globals: &GlobalFlags{}}).config()
		require.ErrorIs(t, err, config.ErrInvalid, want)
		assert.ErrorContains(t, err, want)
	}
}

func TestDefaultConfigBadEnvFailsCommand(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TABTIME_PORT", "eighty")

	_, err := (&deps{globals: &GlobalFlags{}}).config()
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestDefaultConfigUnreadableFallsBackToDefaults(t *testing.T) {
	// A HOME that is a regular file makes the default path unreadable.
	home := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(home, nil, 0644))
	t.Setenv("HOME", home)

	cfg, err := (&deps{globals: &GlobalFlags{}}).config()
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Retention, cfg.Retention)
}

func TestDBPathFlagWins(t *testing.T) {
	d := &deps{globals: &GlobalFlags{DBPath: "/tmp/elsewhere.db"}, cfg: testConfig(t)}
	path, err := d.dbPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/elsewhere.db", path)
}

func TestOpenStoreCreatesMigratedDatabase(t *testing.T) {
	cfg := testConfig(t)
	d := &deps{globals: &GlobalFlags{}, cfg: cfg}

	store, release, err := d.openStore()
	require.NoError(t, err)
	seed(t, store, "github.com", time.Minute, true, "2024-03-01T10:00:00Z")
	release()

	path, err := cfg.DBPath()
	require.NoError(t, err)
	assert.FileExists(t, path)

	store, release, err = d.openStore()
	require.NoError(t, err)
	defer release()
	assert.Equal(t, int64(1), totalRecords(t, store), "data survives reopening")
}

func TestOpenStoreReturnsInjectedStore(t *testing.T) {
	store := openTestStore(t)
	d := testDeps(t, store)
	got, release, err := d.openStore()
	require.NoError(t, err)
	release()
	assert.Same(t, store, got)
	assert.Equal(t, int64(0), totalRecords(t, store), "release leaves an injected store open")
}

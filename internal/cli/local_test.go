package cli

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/tabtime/internal/activity"
	"github.com/runnerr0/tabtime/internal/localstore"
)

func setupLocalTest(t *testing.T) *LocalCommand {
	t.Helper()
	d := testDeps(t, nil)
	path, err := d.cfg.HoldingPath()
	require.NoError(t, err)

	held := localstore.New(path, localstore.WithClock(d.now))
	for _, r := range []activity.Record{
		activity.New("github.com", "https://github.com/", "", 5*time.Minute, true, testNow.Add(-2*time.Hour)),
		activity.New("facebook.com", "https://facebook.com/", "", time.Minute, false, testNow.Add(-10*24*time.Hour)),
		activity.New("go.dev", "https://go.dev/", "", 2*time.Minute, true, testNow.Add(-3*24*time.Hour)),
	} {
		require.NoError(t, held.Append(r))
	}
	return &LocalCommand{Days: 7, deps: d}
}

func TestLocal_ListsRecentOldestFirst(t *testing.T) {
	cmd := setupLocalTest(t)
	cmd.deps.globals.JSON = true

	output := captureOutput(t, func() {
		require.NoError(t, cmd.Execute(nil))
	})

	var out struct {
		Count   int          `json:"count"`
		Records []jsonRecord `json:"records"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &out), output)
	assert.Equal(t, 2, out.Count)
	require.Len(t, out.Records, 2)
	assert.Equal(t, "go.dev", out.Records[0].Domain)
	assert.Equal(t, "github.com", out.Records[1].Domain)
}

func TestLocal_HumanOutput(t *testing.T) {
	cmd := setupLocalTest(t)
	cmd.Days = 30

	output := captureOutput(t, func() {
		require.NoError(t, cmd.Execute(nil))
	})
	assert.Contains(t, output, "3 records held")
	assert.Contains(t, output, "facebook.com")
}

func TestLocal_Empty(t *testing.T) {
	cmd := &LocalCommand{Days: 7, deps: testDeps(t, nil)}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.Execute(nil))
	})
	assert.Contains(t, output, "No records held")
}

func TestLocal_InvalidDays(t *testing.T) {
	cmd := &LocalCommand{Days: 0, deps: testDeps(t, nil)}
	assert.ErrorContains(t, cmd.Execute(nil), "--days")
}

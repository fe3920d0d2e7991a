package localstore

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/tabtime/internal/activity"
)

var now = time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "holding.json.zst")
	return New(path, WithClock(func() time.Time { return now }))
}

func recAt(domain string, ago time.Duration) activity.Record {
	return activity.New(domain, "https://"+domain+"/", "", time.Second, false, now.Add(-ago))
}

func TestAppend_CreatesFile(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Append(recAt("github.com", time.Hour)))

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	all, err := s.All()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "github.com", all[0].Domain)
	assert.Equal(t, int64(1000), all[0].Duration)
}

func TestAll_MissingFileIsEmpty(t *testing.T) {
	s := newTestStore(t)

	all, err := s.All()
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestAppend_KeepsDuplicates(t *testing.T) {
	s := newTestStore(t)
	r := recAt("github.com", time.Hour)

	require.NoError(t, s.Append(r))
	require.NoError(t, s.Append(r))

	all, err := s.All()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAppend_DropsExpired(t *testing.T) {
	s := newTestStore(t)

	// Written while the clock still allowed it.
	old := recAt("old.com", 31*24*time.Hour)
	edge := recAt("edge.com", 30*24*time.Hour)
	s.now = func() time.Time { return now.AddDate(0, 0, -5) }
	require.NoError(t, s.Append(old))
	require.NoError(t, s.Append(edge))

	s.now = func() time.Time { return now }
	require.NoError(t, s.Append(recAt("new.com", time.Minute)))

	all, err := s.All()
	require.NoError(t, err)
	require.Len(t, all, 1, "records at or before the cutoff are dropped")
	assert.Equal(t, "new.com", all[0].Domain)
}

func TestListRecentDays_Ascending(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Append(recAt("b.com", 2*time.Hour)))
	require.NoError(t, s.Append(recAt("old.com", 3*24*time.Hour)))
	require.NoError(t, s.Append(recAt("a.com", 5*time.Hour)))
	require.NoError(t, s.Append(recAt("c.com", time.Minute)))

	recent, err := s.ListRecentDays(1)
	require.NoError(t, err)

	var domains []string
	for _, r := range recent {
		domains = append(domains, r.Domain)
	}
	assert.Equal(t, []string{"a.com", "b.com", "c.com"}, domains)
}

func TestPrune(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Append(recAt("a.com", 10*24*time.Hour)))
	require.NoError(t, s.Append(recAt("b.com", 8*24*time.Hour)))
	require.NoError(t, s.Append(recAt("c.com", time.Hour)))

	n, err := s.Prune(7)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.Prune(7)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	all, err := s.All()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "c.com", all[0].Domain)
}

func TestWithRetentionDays(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.zst")
	s := New(path, WithClock(func() time.Time { return now }), WithRetentionDays(2))

	require.NoError(t, s.Append(recAt("old.com", 3*24*time.Hour)))
	require.NoError(t, s.Append(recAt("new.com", time.Hour)))

	all, err := s.All()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "new.com", all[0].Domain)

	assert.Equal(t, DefaultRetentionDays, New(path, WithRetentionDays(0)).retention)
}

func TestLoad_CorruptFile(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o755))
	require.NoError(t, os.WriteFile(s.Path(), []byte("not zstd"), 0o644))

	_, err := s.All()
	assert.Error(t, err)
	assert.Error(t, s.Append(recAt("a.com", time.Minute)))
}

func TestAppend_Concurrent(t *testing.T) {
	s := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Append(recAt("github.com", time.Minute)))
		}()
	}
	wg.Wait()

	all, err := s.All()
	require.NoError(t, err)
	assert.Len(t, all, 20, "no append is lost")

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

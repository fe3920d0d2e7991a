package syncer

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/tabtime/internal/activity"
	"github.com/runnerr0/tabtime/internal/config"
)

func testRecord() activity.Record {
	at := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	return activity.New("github.com", "https://github.com/", "GitHub", 5*time.Second, true, at)
}

func TestSend_PostsRecordJSON(t *testing.T) {
	var mu sync.Mutex
	var got activity.Record
	var contentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, http.MethodPost, r.Method)
		contentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := New(config.SyncConfig{Endpoint: srv.URL, TimeoutSeconds: 2, MaxInFlight: 4}, nil)
	s.Send(testRecord())
	s.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "github.com", got.Domain)
	assert.Equal(t, int64(5000), got.Duration)
	assert.True(t, got.IsProductive)
	assert.Equal(t, "2024-01-15", got.Date)
	assert.Equal(t, Stats{Sent: 1}, s.Stats())
}

func TestSend_Non2xxCountsAsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	log := hclog.New(&hclog.LoggerOptions{Output: &buf, Level: hclog.Debug})

	s := New(config.SyncConfig{Endpoint: srv.URL}, log)
	s.Send(testRecord())
	s.Wait()

	assert.Equal(t, Stats{Failed: 1}, s.Stats())
	assert.Contains(t, buf.String(), "failed to sync record")
	assert.Contains(t, buf.String(), "503")
}

func TestSend_UnreachableEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	s := New(config.SyncConfig{Endpoint: url, TimeoutSeconds: 1}, nil)
	s.Send(testRecord())
	s.Wait()

	assert.Equal(t, int64(1), s.Stats().Failed)
}

func TestSend_ReturnsBeforeResponse(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()

	s := New(config.SyncConfig{Endpoint: srv.URL, TimeoutSeconds: 5}, nil)

	start := time.Now()
	s.Send(testRecord())
	assert.Less(t, time.Since(start), time.Second, "Send must not block on the request")

	close(release)
	s.Wait()
	assert.Equal(t, int64(1), s.Stats().Sent)
}

func TestSend_TimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	s := New(config.SyncConfig{Endpoint: srv.URL, TimeoutSeconds: 1}, nil)
	s.Send(testRecord())
	s.Wait()

	assert.Equal(t, Stats{Failed: 1}, s.Stats())
}

func TestSend_DropsWhenSaturated(t *testing.T) {
	release := make(chan struct{})
	arrived := make(chan struct{}, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		arrived <- struct{}{}
		<-release
	}))
	defer srv.Close()

	s := New(config.SyncConfig{Endpoint: srv.URL, TimeoutSeconds: 5, MaxInFlight: 2}, nil)
	s.Send(testRecord())
	s.Send(testRecord())
	s.Send(testRecord())

	<-arrived
	<-arrived
	close(release)
	s.Wait()

	assert.Equal(t, Stats{Sent: 2, Dropped: 1}, s.Stats())
}

func TestNew_Defaults(t *testing.T) {
	s := New(config.SyncConfig{Endpoint: "http://127.0.0.1:1"}, nil)
	assert.Equal(t, 5*time.Second, s.client.Timeout)
	assert.Equal(t, 16, cap(s.slots))
}

package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"avoidholes/reinforcement"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededStats() *reinforcement.Stats {
	stats := reinforcement.NewStats()
	for i := 0; i < 4; i++ {
		stats.RecordEpisode()
		stats.RecordReturn(0.5)
	}
	stats.RecordSuccess()
	stats.RecordFailure()
	return stats
}

func TestServeStats(t *testing.T) {
	srv := NewServer("", seededStats())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var view StatsView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, int64(4), view.Episodes)
	assert.Equal(t, int64(1), view.Successes)
	assert.Equal(t, int64(1), view.Failures)
	assert.Equal(t, int64(2), view.Interrupted)
	assert.Equal(t, 0.25, view.SuccessRate)
	assert.Equal(t, 0.5, view.MeanReturn)
}

func TestServeStatsMethods(t *testing.T) {
	srv := NewServer("", seededStats())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stats", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeWebsocket(t *testing.T) {
	ts := httptest.NewServer(NewServer("", seededStats()).Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var view StatsView
	require.NoError(t, conn.ReadJSON(&view))
	assert.Equal(t, int64(4), view.Episodes)
	assert.Equal(t, 0.25, view.SuccessRate)
}

func TestServeShutdown(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		errs <- NewServer(addr, seededStats()).Serve(ctx)
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-errs:
		assert.NoError(t, err)
	case <-time.After(shutdownGracePeriod + time.Second):
		t.Fatal("server did not stop")
	}
}

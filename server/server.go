package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"avoidholes/logger"
	"avoidholes/reinforcement"
	"avoidholes/server/stream"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const (
	// The rate at which stats are sampled for each websocket client.
	sampleResolution = time.Millisecond * 250
	// Time allowed for in-flight requests once the server is told to stop.
	shutdownGracePeriod = 5 * time.Second
)

// Snapshotter provides point-in-time training stats, e.g. *reinforcement.Stats.
type Snapshotter interface {
	Snapshot() reinforcement.EpisodeStats
}

// StatsView is the json body of a stats response or stream update.
type StatsView struct {
	reinforcement.EpisodeStats
	SuccessRate float64 `json:"successRate"`
	MeanReturn  float64 `json:"meanReturn"`
}

// NewStatsView derives the rates of a snapshot.
func NewStatsView(snap reinforcement.EpisodeStats) StatsView {
	return StatsView{
		EpisodeStats: snap,
		SuccessRate:  snap.SuccessRate(),
		MeanReturn:   snap.MeanReturn(),
	}
}

// Server exposes training telemetry: a stats endpoint for polling and a
// websocket endpoint streaming the same stats to any number of clients.
type Server struct {
	addr   string
	stats  Snapshotter
	router *mux.Router
	log    *logrus.Entry
}

// NewServer registers the routes; nothing is served until Serve is called.
func NewServer(addr string, stats Snapshotter) *Server {
	server := &Server{
		addr:   addr,
		stats:  stats,
		router: mux.NewRouter(),
		log:    logger.For("server"),
	}
	server.router.HandleFunc("/stats", server.serveStats).Methods(http.MethodGet)
	server.router.HandleFunc("/ws", server.serveWebsocket).Methods(http.MethodGet)
	server.router.HandleFunc("/healthz", server.serveHealth).Methods(http.MethodGet)
	return server
}

// Handler returns the server's routes, e.g. for use with httptest.
func (server *Server) Handler() http.Handler {
	return server.router
}

// Serve listens until @ctx is done, then shuts down gracefully. Request contexts
// derive from @ctx, so websocket sessions end with it.
func (server *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              server.addr,
		Handler:           server.router,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errs := make(chan error, 1)
	go func() {
		server.log.WithField("addr", server.addr).Info("serving")
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	server.log.Info("stopped")
	return nil
}

func (server *Server) serveStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(NewStatsView(server.stats.Snapshot())); err != nil {
		server.log.WithError(err).Warn("write stats")
	}
}

func (server *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// serveWebsocket streams sampled stats to the client until it disconnects.
func (server *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	snapshot := func() StatsView {
		return NewStatsView(server.stats.Snapshot())
	}
	updates := stream.Sample(ctx.Done(), sampleResolution, snapshot)

	cli, err := stream.NewClient(updates, w, r)
	if err != nil {
		server.log.WithError(err).Warn("websocket upgrade")
		return
	}
	defer cli.Close()

	log := server.log.WithField("remote", r.RemoteAddr)
	log.Debug("websocket client connected")
	if err = cli.Sync(); err != nil {
		log.WithError(err).Warn("websocket client dropped")
		return
	}
	log.Debug("websocket client disconnected")
}

// Package server exposes record ingestion, record management and the
// analytics views over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"

	"github.com/runnerr0/tabtime/internal/analytics"
	"github.com/runnerr0/tabtime/internal/config"
	"github.com/runnerr0/tabtime/internal/logging"
	"github.com/runnerr0/tabtime/internal/storage"
)

const shutdownTimeout = 5 * time.Second

// Server wires the HTTP routes to a record store and an analytics engine.
type Server struct {
	cfg    config.ServerConfig
	store  storage.Store
	engine *analytics.Engine
	log    hclog.Logger
	now    func() time.Time
	loc    *time.Location
}

// Option configures a Server.
type Option func(*Server)

// WithClock replaces time.Now for pruning, default ingestion timestamps and
// the trailing-week views.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithLocation sets the zone used for hourly and weekly bucketing.
func WithLocation(loc *time.Location) Option {
	return func(s *Server) { s.loc = loc }
}

// New creates a Server over store.
func New(cfg config.ServerConfig, store storage.Store, log hclog.Logger, opts ...Option) *Server {
	s := &Server{
		cfg:   cfg,
		store: store,
		log:   logging.OrDiscard(log).Named("http"),
		now:   time.Now,
		loc:   time.Local,
	}
	for _, o := range opts {
		o(s)
	}
	s.engine = analytics.NewEngine(store, analytics.WithClock(s.now), analytics.WithLocation(s.loc))
	return s
}

// Handler builds the gin router.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(RequestID())
	r.Use(Recovery(s.log))
	r.Use(AccessLog(s.log))
	r.Use(CORS(s.cfg.AllowOrigins))
	r.Use(BodyLimit(s.cfg.MaxRequestSize))

	api := r.Group("/api/v1")
	api.GET("/healthz", s.health)
	api.GET("/stats", s.stats)

	records := api.Group("/records")
	records.POST("", RateLimit(s.cfg.RateLimit, s.cfg.RateBurst), s.createRecord)
	records.GET("", s.listRecords)
	records.DELETE("", s.deleteOldRecords)
	records.GET("/:id", s.getRecord)
	records.PUT("/:id", s.updateRecord)
	records.DELETE("/:id", s.deleteRecord)

	summary := api.Group("/summary")
	summary.GET("/daily/:date", s.dailySummary)
	summary.GET("/weekly", s.weeklySummary)
	summary.GET("/top-domains/:date", s.topDomains)

	an := api.Group("/analytics")
	an.GET("/productivity", s.productivity)
	an.GET("/domains", s.domains)
	an.GET("/hourly-pattern", s.hourlyPattern)
	an.GET("/weekly-comparison", s.weeklyComparison)
	an.GET("/insights", s.insights)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, Response{
			Code:      CodeNotFound,
			Message:   codeMessage[CodeNotFound],
			RequestID: requestID(c),
		})
	})

	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("server stopped")
	return nil
}

func (s *Server) health(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{"status": "ok", "ts": s.now().Unix()})
}

func (s *Server) stats(c *gin.Context) {
	st, err := s.store.GetStats(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}

	top := make([]gin.H, 0, len(st.TopDomains))
	for _, d := range st.TopDomains {
		top = append(top, gin.H{"domain": d.Domain, "totalTime": d.TotalTime, "sessions": d.Sessions})
	}
	data := gin.H{
		"totalRecords":      st.TotalRecords,
		"totalTime":         st.TotalDuration,
		"productiveTime":    st.ProductiveDuration,
		"productivityScore": analytics.Score(st.ProductiveDuration, st.TotalDuration),
		"topDomains":        top,
		"schemaVersion":     st.SchemaVersion,
	}
	if st.TotalRecords > 0 {
		data["oldestRecord"] = st.OldestRecord
		data["newestRecord"] = st.NewestRecord
	}
	ok(c, http.StatusOK, data)
}

// Package server publishes run reports, run history and cached sessions over
// HTTP for dashboards and chat bots.
package server

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/klog/v2"

	"github.com/saleor-qa/dashboard-e2e/internal/history"
	"github.com/saleor-qa/dashboard-e2e/internal/runner"
	"github.com/saleor-qa/dashboard-e2e/internal/session"
	"github.com/saleor-qa/dashboard-e2e/internal/version"
)

// HistoryReader is the read side of the run history.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Run, error)
	Get(ctx context.Context, id string) (*history.Run, []history.Result, error)
	Flaky(ctx context.Context, limit int) ([]history.FlakyTest, error)
}

// Options wire the server. History and Sessions may be nil.
type Options struct {
	ResultsDir string
	History    HistoryReader
	Sessions   session.Store
	Now        func() time.Time
}

// Server serves the suite results.
type Server struct {
	opts   Options
	engine *gin.Engine
}

// New builds the router.
func New(opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestID())

	s := &Server{opts: opts, engine: r}

	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if opts.ResultsDir != "" {
		r.Static("/reports", opts.ResultsDir)
	}

	api := r.Group("/api/v1")
	{
		api.GET("/report", s.latestReport)
		api.GET("/runs", s.listRuns)
		api.GET("/runs/:id", s.getRun)
		api.GET("/flaky", s.flaky)
		api.GET("/sessions", s.sessions)
	}
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		klog.Infof("[server] listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "server failed")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "dashboard-e2e",
		"version": version.Short(),
	})
}

func (s *Server) latestReport(c *gin.Context) {
	if s.opts.ResultsDir == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no results folder configured"})
		return
	}
	report, err := runner.ReadReport(filepath.Join(s.opts.ResultsDir, "report.json"))
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no run recorded yet"})
			return
		}
		klog.Errorf("[server] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read report"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"report": report,
		"counts": report.Counts(),
		"passed": report.Passed(),
	})
}

func limitParam(c *gin.Context, def int) int {
	n, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if err != nil || n <= 0 || n > 500 {
		return def
	}
	return n
}

func (s *Server) requireHistory(c *gin.Context) bool {
	if s.opts.History == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history is disabled"})
		return false
	}
	return true
}

func (s *Server) listRuns(c *gin.Context) {
	if !s.requireHistory(c) {
		return
	}
	runs, err := s.opts.History.Recent(c.Request.Context(), limitParam(c, 20))
	if err != nil {
		klog.Errorf("[server] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) getRun(c *gin.Context) {
	if !s.requireHistory(c) {
		return
	}
	run, results, err := s.opts.History.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, history.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	if err != nil {
		klog.Errorf("[server] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load run"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run, "results": results})
}

func (s *Server) flaky(c *gin.Context) {
	if !s.requireHistory(c) {
		return
	}
	tests, err := s.opts.History.Flaky(c.Request.Context(), limitParam(c, 10))
	if err != nil {
		klog.Errorf("[server] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rank flaky tests"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tests": tests})
}

func (s *Server) sessions(c *gin.Context) {
	if s.opts.Sessions == nil {
		c.JSON(http.StatusOK, gin.H{"sessions": []gin.H{}})
		return
	}
	list, err := session.List(c.Request.Context(), s.opts.Sessions)
	if err != nil {
		klog.Errorf("[server] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list sessions"})
		return
	}

	now := s.opts.Now()
	out := make([]gin.H, 0, len(list))
	for _, sum := range list {
		out = append(out, gin.H{
			"key":         sum.Key,
			"cookies":     sum.Cookies,
			"origins":     sum.Origins,
			"captured_at": sum.CapturedAt,
			"age":         sum.Age(now),
			"expired":     sum.Expired(now),
		})
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

// Package api exposes the conversion pipeline over HTTP.
package api

import (
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/filewarp/filewarp/internal/config"
	"github.com/filewarp/filewarp/internal/convert"
	"github.com/filewarp/filewarp/internal/format"
	"github.com/filewarp/filewarp/internal/history"
	"github.com/filewarp/filewarp/internal/pipeline"
	"github.com/filewarp/filewarp/internal/sysdeps"
)

type Server struct {
	Router  *gin.Engine
	cfg     *config.Config
	catalog *format.Catalog
	orch    *pipeline.Orchestrator
	store   *history.Store
	started time.Time
}

func NewServer(cfg *config.Config, catalog *format.Catalog, orch *pipeline.Orchestrator, store *history.Store) *Server {
	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}
	g := gin.Default()
	s := &Server{
		Router:  g,
		cfg:     cfg,
		catalog: catalog,
		orch:    orch,
		store:   store,
		started: time.Now(),
	}

	limiter := newClientLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)

	conv := g.Group("/convert", limiter.middleware())
	conv.POST("", s.convertSingle)
	conv.POST("/batch", s.convertBatch)

	g.GET("/download/:filename", s.download)
	g.GET("/formats", s.formats)
	g.GET("/history", s.recentConversions)
	g.GET("/system-info", s.systemInfo)
	g.GET("/health", s.health)

	g.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint not found"})
	})

	return s
}

func (s *Server) formats(c *gin.Context) {
	c.JSON(http.StatusOK, s.catalog.Snapshot())
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) recentConversions(c *gin.Context) {
	rows, err := s.store.Recent(parseIntDefault(c.Query("limit"), 20))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "History unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversions": rows})
}

func (s *Server) systemInfo(c *gin.Context) {
	deps := map[string]bool{}
	for _, st := range sysdeps.Check(c.Request.Context(), s.cfg) {
		deps[st.Name] = st.Available
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	cats := s.catalog.Categories()
	names := make([]string, len(cats))
	for i, cat := range cats {
		names[i] = string(cat)
	}

	c.JSON(http.StatusOK, gin.H{
		"status":           "healthy",
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
		"uptime":           time.Since(s.started).Seconds(),
		"memory":           gin.H{"alloc": mem.Alloc, "sys": mem.Sys, "numGC": mem.NumGC},
		"supportedFormats": names,
		"maxFileSize":      s.cfg.MaxFileSize,
		"maxBatchFiles":    s.cfg.MaxBatchFiles,
		"dependencies":     deps,
	})
}

// writeError maps a pipeline failure to the documented response shape.
// Validation failures carry the catalog so clients can self-correct;
// internal detail leaks in development builds only.
func (s *Server) writeError(c *gin.Context, err error) {
	var ce *convert.Error
	if !errors.As(err, &ce) {
		ce = &convert.Error{Kind: convert.KindBadRequest, Reason: err.Error()}
	}

	body := gin.H{"error": ce.Reason}
	status := http.StatusInternalServerError

	switch ce.Kind {
	case convert.KindBadRequest:
		status = http.StatusBadRequest
	case convert.KindUnsupportedFormat, convert.KindUnsupportedConversion:
		status = http.StatusBadRequest
		body["supportedFormats"] = s.catalog.Snapshot()
	}

	if s.cfg.Development() && ce.Detail != "" {
		body["details"] = ce.Detail
	}
	c.JSON(status, body)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

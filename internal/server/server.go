// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the assessment pipeline over HTTP: an analyze
// endpoint, the run archive, Prometheus metrics, and an optional access
// gate for shared deployments.
package server

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pdiddy/novelty-engine/internal/metrics"
	"github.com/pdiddy/novelty-engine/internal/pipeline"
	"github.com/pdiddy/novelty-engine/internal/store"
	"github.com/pdiddy/novelty-engine/pkg/types"
)

const (
	// cookieName carries the hashed access code once a client passes the gate.
	cookieName = "access_token"

	// cookieMaxAge keeps a passed gate valid for thirty days.
	cookieMaxAge = 60 * 60 * 24 * 30

	shutdownTimeout = 10 * time.Second
)

// Server wires the pipeline and the run archive into an HTTP API.
type Server struct {
	runner  *pipeline.Runner
	archive *store.Store
	mx      *metrics.Metrics
	cfg     types.ServerConfig
}

// New returns a Server. archive and mx may be nil; the corresponding
// endpoints then report the feature as unavailable.
func New(runner *pipeline.Runner, archive *store.Store, mx *metrics.Metrics, cfg types.ServerConfig) *Server {
	return &Server{runner: runner, archive: archive, mx: mx, cfg: cfg}
}

// Router builds the gin engine with all routes registered. Health, auth,
// and metrics stay outside the access gate; everything else under /api
// requires a valid gate cookie when an access code is configured.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/api/health", s.handleHealth)
	r.POST("/api/auth", s.handleAuth)
	if s.mx != nil {
		r.GET("/metrics", gin.WrapH(s.mx.Handler()))
	}

	api := r.Group("/api", s.accessGate())
	api.POST("/analyze", s.handleAnalyze)
	api.GET("/runs", s.handleListRuns)
	api.GET("/runs/search", s.handleSearchRuns)
	api.GET("/runs/:id", s.handleGetRun)
	return r
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.Addr, Handler: s.Router()}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", s.cfg.Addr,
			"gate", s.cfg.AccessCode != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// requestLogger emits one structured log line per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", float64(time.Since(start).Microseconds()) / 1000.0,
			"bytes", c.Writer.Size(),
			"client_ip", c.ClientIP(),
		}
		switch {
		case c.Writer.Status() >= 500:
			slog.Error("http_request", attrs...)
		case c.Writer.Status() >= 400:
			slog.Warn("http_request", attrs...)
		default:
			slog.Info("http_request", attrs...)
		}
	}
}

// accessGate rejects /api requests lacking the hashed-code cookie. With no
// access code configured the gate is a no-op.
func (s *Server) accessGate() gin.HandlerFunc {
	if s.cfg.AccessCode == "" {
		return func(c *gin.Context) { c.Next() }
	}

	want := hashCode(s.cfg.AccessCode)
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || subtle.ConstantTimeCompare([]byte(token), []byte(want)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "access code required"})
			return
		}
		c.Next()
	}
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

type authRequest struct {
	Code string `json:"code"`
}

// handleAuth exchanges the plaintext access code for the gate cookie.
func (s *Server) handleAuth(c *gin.Context) {
	if s.cfg.AccessCode == "" {
		c.JSON(http.StatusOK, gin.H{"status": "open"})
		return
	}

	var req authRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	code := strings.TrimSpace(req.Code)
	slog.Info("gate attempt", "code_len", len(code))
	if subtle.ConstantTimeCompare([]byte(code), []byte(s.cfg.AccessCode)) != 1 {
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid access code"})
		return
	}

	c.SetCookie(cookieName, hashCode(s.cfg.AccessCode), cookieMaxAge, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleAnalyze runs the full assessment for a proposal posted as JSON.
func (s *Server) handleAnalyze(c *gin.Context) {
	var proposal types.Proposal
	if err := c.ShouldBindJSON(&proposal); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proposal: " + err.Error()})
		return
	}
	if strings.TrimSpace(proposal.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}
	if proposal.Branch == "" {
		proposal.Branch = types.BranchNavy
	}

	out, err := s.runner.Run(c.Request.Context(), proposal)
	if err != nil {
		slog.Error("analysis failed", "title", proposal.Title, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"verdict":    out.Report.Verdict,
		"confidence": out.Report.Confidence,
		"markdown":   out.Markdown,
		"summary":    out.StepSummary,
		"report":     out.Report,
		"run_id":     out.RunID,
	})
}

func (s *Server) handleListRuns(c *gin.Context) {
	if s.archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run archive is not configured"})
		return
	}

	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	runs, err := s.archive.ListRuns(c.Request.Context(), limit)
	if err != nil {
		slog.Error("listing runs failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing runs failed"})
		return
	}
	if runs == nil {
		runs = []store.RunSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleGetRun(c *gin.Context) {
	if s.archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run archive is not configured"})
		return
	}

	report, err := s.archive.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		slog.Error("loading run failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "loading run failed"})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleSearchRuns(c *gin.Context) {
	if s.archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run archive is not configured"})
		return
	}

	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	hits, err := s.archive.SearchCorpus(c.Request.Context(), query, limit)
	if err != nil {
		slog.Error("corpus search failed", "query", query, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "corpus search failed"})
		return
	}
	if hits == nil {
		hits = []store.CorpusHit{}
	}
	c.JSON(http.StatusOK, gin.H{"hits": hits})
}

// parseLimit reads the optional limit query parameter. A malformed value
// aborts the request with 400 and returns ok false.
func parseLimit(c *gin.Context) (int, bool) {
	v := c.Query("limit")
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return 0, false
	}
	return n, true
}

// Package server exposes the generators and the audit log over HTTP
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"metagen/db"
	"metagen/generator"
	"metagen/utils"
)

// AuditReader is the read side of the audit log; *db.DB satisfies it
type AuditReader interface {
	ListAuditEntries(filter db.AuditFilter) ([]*db.AuditEntry, error)
	SearchAuditEntries(query string, limit int) ([]*db.SearchResult, error)
	GetUsageStats(startDate, endDate time.Time) (*db.UsageStats, error)
}

// Server is the HTTP API
type Server struct {
	engine *gin.Engine
	gen    *generator.Generator
	audit  AuditReader
	logger *utils.Logger
	cfg    utils.ServerConfig
}

// New builds the router. audit may be nil, in which case the audit and
// usage routes answer 503.
func New(cfg utils.ServerConfig, gen *generator.Generator, audit AuditReader, logger *utils.Logger) *Server {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	switch cfg.Mode {
	case gin.DebugMode, gin.TestMode:
		gin.SetMode(cfg.Mode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		engine: gin.New(),
		gen:    gen,
		audit:  audit,
		logger: logger,
		cfg:    cfg,
	}
	s.setupRoutes()
	return s
}

// Engine returns the underlying gin engine
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) setupRoutes() {
	s.engine.Use(recovery(s.logger))
	s.engine.Use(requestID())
	s.engine.Use(metricsMiddleware())
	s.engine.Use(accessLog(s.logger))

	s.engine.GET("/health", s.health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.engine.Group("/api/v1")
	{
		v1.POST("/alt-tag", s.altTag)
		v1.POST("/alt-tag/batch", s.altTagBatch)
		v1.POST("/seo/title", s.seoTitle)
		v1.POST("/seo/description", s.seoDescription)
		v1.POST("/icon", s.icon)

		v1.GET("/audit", s.listAudit)
		v1.GET("/audit/search", s.searchAudit)
		v1.GET("/usage", s.usage)
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	addr := s.cfg.Addr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	utils.SafeGo(s.logger, "http server", func() {
		s.logger.Info("HTTP API listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	})

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	s.logger.Info("Shutting down HTTP API")
	return srv.Shutdown(shutdownCtx)
}

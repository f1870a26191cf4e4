// Package server exposes the survey analytics pipelines over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/KaramelBytes/surveyloom-cli/internal/dataset"
	"github.com/KaramelBytes/surveyloom-cli/internal/summarize"
)

// DefaultMaxUploadBytes caps multipart bodies when Options.MaxUploadBytes is zero.
const DefaultMaxUploadBytes = 32 << 20

// Options configures a Server.
type Options struct {
	// APIKey enables bearer auth on the analytic routes when non-empty.
	APIKey string
	Load   dataset.LoadOptions
	// Summarizer backs /summarize_responses. Nil makes that route answer 503.
	Summarizer     summarize.Summarizer
	Logger         *zap.Logger
	MaxUploadBytes int64
}

// Server serves the counts, correlation and summarization pipelines.
type Server struct {
	opt    Options
	log    *zap.Logger
	svc    *summarize.Service
	engine *gin.Engine
}

// New builds the gin engine and its routes.
func New(opt Options) *Server {
	if opt.Logger == nil {
		opt.Logger = zap.NewNop()
	}
	if opt.MaxUploadBytes <= 0 {
		opt.MaxUploadBytes = DefaultMaxUploadBytes
	}
	s := &Server{opt: opt, log: opt.Logger}
	if opt.Summarizer != nil {
		s.svc = summarize.NewService(opt.Summarizer, opt.Logger)
	}

	r := gin.New()
	r.MaxMultipartMemory = opt.MaxUploadBytes
	r.Use(gin.Recovery(), requestID(), observe(s.log))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/", bearerAuth(opt.APIKey), limitBody(opt.MaxUploadBytes))
	api.POST("/create_counts_table", s.handleCounts)
	api.POST("/create_correlation_table", s.handleCorrelation)
	api.POST("/summarize_responses", s.handleSummarize)

	s.engine = r
	return s
}

// Handler returns the http.Handler serving all routes.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

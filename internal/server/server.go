package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/remedykit/bill-endorser/internal/config"
	"github.com/remedykit/bill-endorser/internal/contract"
	"github.com/remedykit/bill-endorser/internal/endorse"
)

// Server is the HTTP front of the endorsement pipeline: thin handlers over
// the endorse service and contract scanner.
type Server struct {
	name        string
	version     string
	maxFileSize int64

	endorse *endorse.Service
	scanner *contract.Scanner

	httpServer *http.Server
	logger     *slog.Logger
}

// New builds the server and its routes.
func New(cfg *config.Config, endorseSvc *endorse.Service, scanner *contract.Scanner, logger *slog.Logger) *Server {
	s := &Server{
		name:        cfg.ServerName,
		version:     cfg.Version,
		maxFileSize: cfg.MaxFileSize,
		endorse:     endorseSvc,
		scanner:     scanner,
		logger:      logger,
	}

	if !cfg.IsDebug() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(structuredLoggingMiddleware(logger))
	engine.MaxMultipartMemory = cfg.MaxFileSize

	engine.GET("/health", s.handleHealth)

	api := engine.Group("/api")
	{
		bills := api.Group("/bills")
		{
			bills.POST("/endorse", s.handleEndorseBill)
			bills.POST("/data", s.handleBillData)
		}
		api.POST("/endorsements", s.handleStamp)
		api.POST("/contracts/scan", s.handleScanContract)
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Address(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Run starts the HTTP server and blocks until the context is canceled or
// the listener fails. Shutdown drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lustra-ai/lustra/engine/auth"
	"github.com/lustra-ai/lustra/engine/pipeline"
	"github.com/lustra-ai/lustra/pkg/config"
	"github.com/lustra-ai/lustra/pkg/logger"
)

// Server is the edge proxy that fronts the remote workflow engine and
// auth service for the web app. It owns no business state; every handler
// forwards to a remote collaborator.
type Server struct {
	cfg    *config.Config
	engine *pipeline.Client
	auth   *auth.Client
	router *gin.Engine
}

func New(cfg *config.Config, engine *pipeline.Client, authClient *auth.Client) *Server {
	s := &Server{
		cfg:    cfg,
		engine: engine,
		auth:   authClient,
	}
	s.router = s.buildRouter()
	return s
}

// Router exposes the gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("edge proxy listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/careplan-backend/internal/config"
)

type Server struct {
	Engine *gin.Engine
	srv    *http.Server
}

func NewServer(httpCfg config.HTTPConfig, cfg RouterConfig) *Server {
	engine := NewRouter(cfg)
	return &Server{
		Engine: engine,
		srv: &http.Server{
			Addr:              httpCfg.Addr,
			Handler:           engine,
			ReadHeaderTimeout: orDefault(httpCfg.ReadHeaderTimeout.Duration, 10*time.Second),
			IdleTimeout:       orDefault(httpCfg.IdleTimeout.Duration, 60*time.Second),
		},
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests for up to drain.
func (s *Server) Run(ctx context.Context, drain time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), orDefault(drain, 15*time.Second))
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) Addr() string { return s.srv.Addr }

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

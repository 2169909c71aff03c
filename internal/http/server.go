package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/senseboard-backend/internal/pkg/logger"
)

const shutdownGrace = 5 * time.Second

type Server struct {
	log    *logger.Logger
	Engine *gin.Engine

	srv *http.Server
}

func NewServer(log *logger.Logger, cfg RouterConfig) *Server {
	return &Server{
		log:    log.With("service", "HTTPServer"),
		Engine: NewRouter(cfg),
	}
}

// Listen binds the first free port in [preferred, preferred+span). Developers
// often run several instances side by side; walking a short range saves them
// from hand-assigning ports.
func (s *Server) Listen(preferred, span int) (net.Listener, int, error) {
	if span < 1 {
		span = 1
	}
	var lastErr error
	for port := preferred; port < preferred+span; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err != nil {
			lastErr = err
			continue
		}
		if port != preferred {
			s.log.Warn("preferred port busy, bound successor", "preferred", preferred, "port", port)
		}
		return ln, port, nil
	}
	return nil, 0, fmt.Errorf("no free port in [%d, %d): %w", preferred, preferred+span, lastErr)
}

// Serve runs the server on ln until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.srv = &http.Server{Handler: s.Engine}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

package rpc

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"connectrpc.com/connect"
)

const shutdownGrace = 5 * time.Second

// Server serves one engine over HTTP, plus a /healthz endpoint.
type Server struct {
	srv    *http.Server
	lis    net.Listener
	logger *slog.Logger
}

// NewServer mounts the engine handler and a health check on a new mux.
func NewServer(e Engine, logger *slog.Logger, opts ...connect.HandlerOption) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	path, handler := NewHandler(e, opts...)
	mux.Handle(path, handler)
	mux.HandleFunc("/healthz", handleHealth)

	return &Server{
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the root handler, for mounting under httptest.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.logger.InfoContext(ctx, "rpc server listening", slog.String("addr", l.Addr().String()))

	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.logger.ErrorContext(ctx, "rpc server shutdown", slog.Any("error", err))
		}
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

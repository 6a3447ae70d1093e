package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"fota-manager/backend/global"
)

func NewHTTPServer(host string, port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              net.JoinHostPort(host, fmt.Sprintf("%d", port)),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

// StartHTTPServer listens in the background. Listen errors are returned
// synchronously; serve errors are logged.
func StartHTTPServer(srv *http.Server) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", srv.Addr, err)
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			global.Logger.Error().Err(err).Msg("http server stopped")
		}
	}()
	global.Logger.Info().Str("addr", ln.Addr().String()).Msg("http server listening")
	return nil
}

func Shutdown(ctx context.Context, srv *http.Server) error {
	return srv.Shutdown(ctx)
}

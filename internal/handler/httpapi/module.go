package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/voterlab/poker-session-service/config"
	"github.com/voterlab/poker-session-service/internal/handler/ws"
	"go.uber.org/fx"
)

var Module = fx.Module("httpapi",
	fx.Provide(
		ws.NewWSHandler,
		NewRouter,
	),
	fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, router chi.Router, logger *slog.Logger) {
		srv := &http.Server{Handler: router}
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				ln, err := net.Listen("tcp", cfg.HTTP.Addr)
				if err != nil {
					return err
				}
				go func() {
					if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error("http server stopped", "error", err)
					}
				}()
				logger.Info("http server listening", "addr", cfg.HTTP.Addr)
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return srv.Shutdown(ctx)
			},
		})
	}),
)

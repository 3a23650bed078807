package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/voterlab/poker-session-service/config"
	"github.com/voterlab/poker-session-service/internal/adapter/pubsub"
	"github.com/voterlab/poker-session-service/internal/domain/poker"
	"github.com/voterlab/poker-session-service/internal/domain/registry"
	"github.com/voterlab/poker-session-service/internal/scheduler"
	"github.com/voterlab/poker-session-service/internal/storage"
	"go.uber.org/fx"
)

var Module = fx.Module("service",
	fx.Provide(
		func() *poker.Machine { return poker.NewMachine() },
		scheduler.NewKeyed,
		func(
			store *storage.Store,
			machine *poker.Machine,
			hub *registry.Hub,
			dispatcher pubsub.EventDispatcher,
			reaper *scheduler.Keyed,
			logger *slog.Logger,
			cfg *config.Config,
		) *Gateway {
			grace := time.Duration(cfg.Session.DeleteGraceSeconds) * time.Second
			return NewGateway(store, machine, hub, dispatcher, reaper, logger, grace)
		},
	),
	fx.Invoke(func(lc fx.Lifecycle, reaper *scheduler.Keyed) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				reaper.Stop()
				return nil
			},
		})
	}),
)

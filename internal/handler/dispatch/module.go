package dispatch

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/fx"
)

var Module = fx.Module("dispatch",
	fx.Provide(
		NewDeliveryHandler,
		NewRouter,
	),
	fx.Invoke(RegisterHandlers),
	fx.Invoke(func(lc fx.Lifecycle, router *message.Router) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				go func() {
					// Run blocks until Close; startup errors surface in logs.
					_ = router.Run(context.Background())
				}()
				select {
				case <-router.Running():
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			},
			OnStop: func(ctx context.Context) error {
				return router.Close()
			},
		})
	}),
)

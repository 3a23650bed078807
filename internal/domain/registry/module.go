package registry

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("registry",
	fx.Provide(NewHub),
	fx.Invoke(func(lc fx.Lifecycle, h *Hub) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				h.Shutdown()
				return nil
			},
		})
	}),
)

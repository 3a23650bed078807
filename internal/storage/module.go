package storage

import (
	"context"
	"log/slog"

	"github.com/voterlab/poker-session-service/config"
	"go.uber.org/fx"
)

var Module = fx.Module("storage",
	fx.Provide(
		func(cfg *config.Config) *FileStore {
			return NewFileStore(cfg.Storage.DataFile)
		},
		func(file *FileStore, logger *slog.Logger) (*Store, error) {
			return NewStore(file, logger)
		},
	),
	fx.Invoke(func(lc fx.Lifecycle, s *Store) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				s.Close()
				return nil
			},
		})
	}),
)

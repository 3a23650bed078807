package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/voterlab/poker-session-service/config"
	"github.com/voterlab/poker-session-service/internal/adapter/pubsub"
	"github.com/voterlab/poker-session-service/internal/domain/registry"
	"github.com/voterlab/poker-session-service/internal/handler/dispatch"
	"github.com/voterlab/poker-session-service/internal/handler/httpapi"
	"github.com/voterlab/poker-session-service/internal/service"
	"github.com/voterlab/poker-session-service/internal/storage"
	"go.uber.org/fx"
)

func NewApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLogger,
			ProvideWatermillLogger,
			ProvideBus,
			func(bus *gochannel.GoChannel) message.Publisher { return bus },
			func(bus *gochannel.GoChannel) message.Subscriber { return bus },
			pubsub.NewEventDispatcher,
		),
		fx.Invoke(func(lc fx.Lifecycle, bus *gochannel.GoChannel) {
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					return bus.Close()
				},
			})
		}),
		registry.Module,
		storage.Module,
		service.Module,
		dispatch.Module,
		httpapi.Module,
	)
}

// ProvideLogger builds the structured logger: JSON to stdout, mirrored to
// the append-only log file when one is configured. A broken log file
// degrades to stdout only; it never stops the service.
func ProvideLogger(cfg *config.Config) *slog.Logger {
	var w io.Writer = os.Stdout
	if cfg.Log.File != "" {
		if f, err := openLogFile(cfg.Log.File); err != nil {
			fmt.Fprintf(os.Stderr, "log file unavailable: %v\n", err)
		} else {
			w = io.MultiWriter(os.Stdout, f)
		}
	}

	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}

func ProvideWatermillLogger(logger *slog.Logger) watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logger)
}

func ProvideBus(cfg *config.Config, logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return pubsub.NewBus(cfg.Bus.Buffer, logger)
}

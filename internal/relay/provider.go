package relay

import (
	"context"
	"log/slog"

	"github.com/bytescript/bytescript-rtc/internal/token"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

func ProvidePresence(rdb *redis.Client, logger *slog.Logger) *Presence {
	return NewPresence(rdb, logger)
}

func ProvideRegistry(presence *Presence, logger *slog.Logger) *Registry {
	return NewRegistry(presence, logger)
}

func ProvideRouter(registry *Registry, logger *slog.Logger) *Router {
	return NewRouter(registry, logger)
}

func ProvideServer(lc fx.Lifecycle, issuer *token.Issuer, registry *Registry, router *Router, config Config, logger *slog.Logger) *Server {
	server := NewServer(issuer, registry, router, config, logger)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})

	return server
}

var Module = fx.Options(
	fx.Provide(
		ProvidePresence,
		ProvideRegistry,
		ProvideRouter,
		ProvideServer,
	),
)

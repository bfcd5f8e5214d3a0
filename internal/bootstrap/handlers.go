package bootstrap

import (
	"log/slog"
	"os"

	"github.com/bytescript/bytescript-rtc/internal/health"
	"github.com/bytescript/bytescript-rtc/internal/ice"
	"github.com/bytescript/bytescript-rtc/internal/relay"
	"github.com/bytescript/bytescript-rtc/internal/token"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func ProvideLogger(cfg *Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
}

// ProvideTokenIssuer fails the whole application start on a missing or
// known-default signing secret: running without one would accept forged
// tokens.
func ProvideTokenIssuer(cfg *Config) (*token.Issuer, error) {
	return token.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
}

func ProvideICEConfig(cfg *Config) (ice.Config, error) {
	iceCfg := ice.Config{
		StunURL:      cfg.StunURL,
		TurnURL:      cfg.TurnURL,
		TurnUsername: cfg.TurnUsername,
		TurnPassword: cfg.TurnPassword,
	}
	if err := iceCfg.Validate(); err != nil {
		return ice.Config{}, err
	}
	return iceCfg, nil
}

func ProvideRelayConfig(cfg *Config) relay.Config {
	return relay.Config{
		ShutdownGrace: cfg.ShutdownGrace,
		MaxViolations: cfg.MaxViolations,
	}
}

func ProvideTokenHandler(issuer *token.Issuer, logger *slog.Logger) *token.Handler {
	return token.NewHandler(issuer, logger)
}

func ProvideICEHandler(iceCfg ice.Config) *ice.Handler {
	return ice.NewHandler(iceCfg)
}

func ProvideHealthHandler(relayServer *relay.Server, registry *relay.Registry, presence *relay.Presence, rdb *redis.Client) *health.Handler {
	return health.NewHandler(relayServer, registry, presence, rdb)
}

type HandlerParams struct {
	fx.In

	TokenHandler  *token.Handler
	ICEHandler    *ice.Handler
	HealthHandler *health.Handler
	RelayServer   *relay.Server
}

func RegisterRoutes(e *echo.Echo, params HandlerParams) {
	api := e.Group("/api")

	params.HealthHandler.RegisterRoutes(api)
	params.ICEHandler.RegisterRoutes(api)

	tokenGroup := api.Group("")
	tokenGroup.Use(token.RateLimiter(token.DefaultRateLimiterConfig()))
	params.TokenHandler.RegisterRoutes(tokenGroup)

	e.GET("/ws", params.RelayServer.HandleConnection)
}

var HandlersModule = fx.Options(
	fx.Provide(
		ProvideLogger,
		ProvideTokenIssuer,
		ProvideICEConfig,
		ProvideRelayConfig,
		ProvideTokenHandler,
		ProvideICEHandler,
		ProvideHealthHandler,
	),
	fx.Invoke(RegisterRoutes),
)

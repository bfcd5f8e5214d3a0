package bootstrap

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

// ProvideRedisClient returns nil when no address is configured: the
// presence mirror and readiness check treat a nil client as disabled.
func ProvideRedisClient(cfg *Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

var InfrastructureModule = fx.Options(
	fx.Provide(ProvideRedisClient),
)

package bootstrap

import (
	"context"
	"net/http"

	"github.com/bytescript/bytescript-rtc/internal/relay"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"
)

var defaultCORSConfig = middleware.CORSConfig{
	AllowOrigins: []string{"*"},
	AllowMethods: []string{
		http.MethodGet,
		http.MethodHead,
		http.MethodPost,
		http.MethodOptions,
	},
	AllowHeaders: []string{
		"Accept",
		"Authorization",
		"Content-Type",
		"X-Requested-With",
	},
	MaxAge: 86400,
}

func NewEchoServer() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.Secure())
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		// Compressing an upgrade response would break the websocket
		// handshake.
		Skipper: func(c echo.Context) bool {
			return c.Request().Header.Get("Upgrade") == "websocket"
		},
	}))
	e.Use(middleware.CORSWithConfig(defaultCORSConfig))
	e.Use(middleware.BodyLimit("10K"))
	return e
}

func StartServer(lc fx.Lifecycle, e *echo.Echo, cfg *Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := e.Start(cfg.ServerAddr); err != nil && err != http.ErrServerClosed {
					e.Logger.Fatal(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return e.Shutdown(ctx)
		},
	})
}

var ServerModule = fx.Options(
	fx.Provide(NewEchoServer),
	fx.Invoke(StartServer),
)

// Run assembles and runs the application. Stop hooks fire in reverse order,
// so the relay drains its connections before the HTTP server shuts down.
func Run() {
	fx.New(
		fx.Provide(LoadConfig),
		InfrastructureModule,
		ServerModule,
		relay.Module,
		HandlersModule,
	).Run()
}

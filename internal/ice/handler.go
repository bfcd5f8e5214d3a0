package ice

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type ServersResponse struct {
	IceServers []Server `json:"iceServers"`
}

type Handler struct {
	config Config
}

func NewHandler(config Config) *Handler {
	return &Handler{config: config}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/turn", h.Servers)
}

// Servers returns the ICE server list for clients. Protect this route in
// production deployments where TURN credentials are sensitive.
func (h *Handler) Servers(c echo.Context) error {
	return c.JSON(http.StatusOK, ServersResponse{IceServers: h.config.Servers()})
}

package token

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/bytescript/bytescript-rtc/internal/shared"
	"github.com/labstack/echo/v4"
)

type TokenRequest struct {
	UserID string `json:"userId"`
	RoomID string `json:"roomId,omitempty"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type Handler struct {
	issuer *Issuer
	logger *slog.Logger
}

func NewHandler(issuer *Issuer, logger *slog.Logger) *Handler {
	return &Handler{
		issuer: issuer,
		logger: logger.With("handler", "token"),
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/ws-token", h.CreateToken)
}

// CreateToken mints a short-lived session token bound to the requested
// identity and optional room. In production the caller's session should be
// validated before this point; the handler itself only enforces the request
// shape and the signing preconditions.
func (h *Handler) CreateToken(c echo.Context) error {
	var req TokenRequest
	if err := c.Bind(&req); err != nil {
		return shared.ErrorJSON(c, http.StatusBadRequest, "invalid_request")
	}

	if req.UserID == "" {
		return shared.ErrorJSON(c, http.StatusBadRequest, "user_id_required")
	}

	tok, err := h.issuer.Issue(req.UserID, req.RoomID)
	if err != nil {
		if errors.Is(err, ErrMisconfigured) {
			h.logger.Error("signing secret is not properly configured")
			return shared.ErrorJSON(c, http.StatusInternalServerError, "server_misconfigured")
		}
		h.logger.Error("failed to sign ws token", "error", err, "user_id", req.UserID)
		return shared.ErrorJSON(c, http.StatusInternalServerError, "token_generation_failed")
	}

	return c.JSON(http.StatusOK, TokenResponse{Token: tok})
}

package shared

import "github.com/labstack/echo/v4"

// ErrorResponse is the wire shape for every user-visible failure: a terse
// machine-readable code, no internal diagnostic detail.
type ErrorResponse struct {
	Error string `json:"error"`
}

func ErrorJSON(c echo.Context, status int, code string) error {
	return c.JSON(status, ErrorResponse{Error: code})
}

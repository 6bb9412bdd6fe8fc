package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/0ppliger/oam-broker/pkg/broker"
	"github.com/0ppliger/oam-broker/pkg/logger"
)

type errorResponse struct {
	Message string `json:"message"`
}

// emitError maps mutation errors to HTTP statuses. Rejections carry
// the broker's message; anything unexpected is a 500 with no detail.
func emitError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, broker.ErrValidation):
		return c.JSON(http.StatusBadRequest, errorResponse{Message: err.Error()})
	case errors.Is(err, broker.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Message: err.Error()})
	case errors.Is(err, broker.ErrDanglingReference):
		return c.JSON(http.StatusConflict, errorResponse{Message: err.Error()})
	default:
		logger.Error("Emit request failed", "err", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Message: "Internal server error"})
	}
}

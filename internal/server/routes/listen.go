package routes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/0ppliger/oam-broker/internal/server/middleware"
	"github.com/0ppliger/oam-broker/pkg/broker"
	"github.com/0ppliger/oam-broker/pkg/logger"
)

// ListenHandler opens a server-sent event stream of committed changes.
// Without from_seq the stream starts at the next commit; with from_seq
// it replays retained history first. The stream runs until the client
// disconnects or the subscriber falls too far behind.
func ListenHandler(c echo.Context) error {
	bus := c.(*middleware.AppContext).App.Bus

	var sub *broker.Subscription
	if raw := c.QueryParam("from_seq"); raw != "" {
		fromSeq, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid from_seq"})
		}
		sub = bus.SubscribeFrom(fromSeq)
	} else {
		sub = bus.Subscribe()
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Flush()

	session := broker.NewSession(sub)
	err := session.Run(c.Request().Context(), c.Response())
	if errors.Is(err, broker.ErrSlowConsumer) {
		logger.Warn("Listen session closed", "reason", "slow consumer")
		return nil
	}
	if err != nil {
		// Transport failures end the session; the client reconnects.
		logger.Debug("Listen session ended", "err", err)
	}
	return nil
}

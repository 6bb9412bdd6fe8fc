package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/0ppliger/oam-broker/pkg/broker"
)

// App holds the shared components handlers reach through the request
// context.
type App struct {
	Graph *broker.Graph
	Bus   *broker.Bus
}

// AppContext wraps the echo context with the application state.
type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&AppContext{c, app})
		}
	}
}

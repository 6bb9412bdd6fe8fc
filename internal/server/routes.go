package server

import (
	"github.com/labstack/echo/v4"

	"github.com/0ppliger/oam-broker/internal/server/routes"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	// Mutation surface, one endpoint family per object kind
	e.POST("/emit/entity", routes.CreateEntityHandler)
	e.PUT("/emit/entity/:id", routes.UpdateEntityHandler)
	e.DELETE("/emit/entity/:id", routes.DeleteEntityHandler)

	e.POST("/emit/edge", routes.CreateEdgeHandler)
	e.PUT("/emit/edge/:id", routes.UpdateEdgeHandler)
	e.DELETE("/emit/edge/:id", routes.DeleteEdgeHandler)

	e.POST("/emit/entity_tag", routes.CreateEntityTagHandler)
	e.PUT("/emit/entity_tag/:id", routes.UpdateEntityTagHandler)
	e.DELETE("/emit/entity_tag/:id", routes.DeleteEntityTagHandler)

	e.POST("/emit/edge_tag", routes.CreateEdgeTagHandler)
	e.PUT("/emit/edge_tag/:id", routes.UpdateEdgeTagHandler)
	e.DELETE("/emit/edge_tag/:id", routes.DeleteEdgeTagHandler)

	// Event stream
	e.GET("/listen", routes.ListenHandler)
}

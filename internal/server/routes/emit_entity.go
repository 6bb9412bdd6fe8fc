package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/0ppliger/oam-broker/internal/server/middleware"
	"github.com/0ppliger/oam-broker/pkg/oam"
)

// CreateEntityHandler resolves an asset emit to a new or existing
// entity and returns its snapshot.
func CreateEntityHandler(c echo.Context) error {
	type createEntityBody struct {
		Type  string     `json:"type" validate:"required"`
		Asset oam.Fields `json:"asset" validate:"required"`
	}

	data := new(createEntityBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
	}

	graph := c.(*middleware.AppContext).App.Graph
	entity, _, err := graph.CreateEntity(oam.TypedValue{Kind: data.Type, Fields: data.Asset})
	if err != nil {
		return emitError(c, err)
	}
	return c.JSON(http.StatusOK, entity)
}

// UpdateEntityHandler replaces the value of an existing entity.
func UpdateEntityHandler(c echo.Context) error {
	type updateEntityParams struct {
		ID    string     `param:"id" validate:"required"`
		Type  string     `json:"type" validate:"required"`
		Asset oam.Fields `json:"asset" validate:"required"`
	}

	data := new(updateEntityParams)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
	}

	graph := c.(*middleware.AppContext).App.Graph
	entity, _, err := graph.UpdateEntity(data.ID, oam.TypedValue{Kind: data.Type, Fields: data.Asset})
	if err != nil {
		return emitError(c, err)
	}
	return c.JSON(http.StatusOK, entity)
}

// DeleteEntityHandler tombstones an entity, cascading to dependent
// edges and tags, and returns the tombstone snapshot.
func DeleteEntityHandler(c echo.Context) error {
	type deleteEntityParams struct {
		ID string `param:"id" validate:"required"`
	}

	params := new(deleteEntityParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
	}

	graph := c.(*middleware.AppContext).App.Graph
	entity, err := graph.DeleteEntity(params.ID)
	if err != nil {
		return emitError(c, err)
	}
	return c.JSON(http.StatusOK, entity)
}

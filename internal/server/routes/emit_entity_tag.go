package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/0ppliger/oam-broker/internal/server/middleware"
	"github.com/0ppliger/oam-broker/pkg/oam"
)

// CreateEntityTagHandler resolves a property emit scoped to an entity.
func CreateEntityTagHandler(c echo.Context) error {
	type createEntityTagBody struct {
		Type     string     `json:"type" validate:"required"`
		Property oam.Fields `json:"property" validate:"required"`
		Entity   string     `json:"entity" validate:"required"`
	}

	data := new(createEntityTagBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
	}

	graph := c.(*middleware.AppContext).App.Graph
	tag, _, err := graph.CreateEntityTag(oam.TypedValue{Kind: data.Type, Fields: data.Property}, data.Entity)
	if err != nil {
		return emitError(c, err)
	}
	return c.JSON(http.StatusOK, tag)
}

// UpdateEntityTagHandler replaces the value of an existing entity tag.
func UpdateEntityTagHandler(c echo.Context) error {
	type updateEntityTagParams struct {
		ID       string     `param:"id" validate:"required"`
		Type     string     `json:"type" validate:"required"`
		Property oam.Fields `json:"property" validate:"required"`
		Entity   string     `json:"entity" validate:"required"`
	}

	data := new(updateEntityTagParams)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
	}

	graph := c.(*middleware.AppContext).App.Graph
	tag, _, err := graph.UpdateEntityTag(data.ID, oam.TypedValue{Kind: data.Type, Fields: data.Property}, data.Entity)
	if err != nil {
		return emitError(c, err)
	}
	return c.JSON(http.StatusOK, tag)
}

// DeleteEntityTagHandler tombstones an entity tag.
func DeleteEntityTagHandler(c echo.Context) error {
	type deleteEntityTagParams struct {
		ID string `param:"id" validate:"required"`
	}

	params := new(deleteEntityTagParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
	}

	graph := c.(*middleware.AppContext).App.Graph
	tag, err := graph.DeleteEntityTag(params.ID)
	if err != nil {
		return emitError(c, err)
	}
	return c.JSON(http.StatusOK, tag)
}

package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/0ppliger/oam-broker/internal/server/middleware"
	"github.com/0ppliger/oam-broker/pkg/oam"
)

// CreateEdgeTagHandler resolves a property emit scoped to an edge.
func CreateEdgeTagHandler(c echo.Context) error {
	type createEdgeTagBody struct {
		Type     string     `json:"type" validate:"required"`
		Property oam.Fields `json:"property" validate:"required"`
		Edge     string     `json:"edge" validate:"required"`
	}

	data := new(createEdgeTagBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
	}

	graph := c.(*middleware.AppContext).App.Graph
	tag, _, err := graph.CreateEdgeTag(oam.TypedValue{Kind: data.Type, Fields: data.Property}, data.Edge)
	if err != nil {
		return emitError(c, err)
	}
	return c.JSON(http.StatusOK, tag)
}

// UpdateEdgeTagHandler replaces the value of an existing edge tag.
func UpdateEdgeTagHandler(c echo.Context) error {
	type updateEdgeTagParams struct {
		ID       string     `param:"id" validate:"required"`
		Type     string     `json:"type" validate:"required"`
		Property oam.Fields `json:"property" validate:"required"`
		Edge     string     `json:"edge" validate:"required"`
	}

	data := new(updateEdgeTagParams)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
	}

	graph := c.(*middleware.AppContext).App.Graph
	tag, _, err := graph.UpdateEdgeTag(data.ID, oam.TypedValue{Kind: data.Type, Fields: data.Property}, data.Edge)
	if err != nil {
		return emitError(c, err)
	}
	return c.JSON(http.StatusOK, tag)
}

// DeleteEdgeTagHandler tombstones an edge tag.
func DeleteEdgeTagHandler(c echo.Context) error {
	type deleteEdgeTagParams struct {
		ID string `param:"id" validate:"required"`
	}

	params := new(deleteEdgeTagParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
	}

	graph := c.(*middleware.AppContext).App.Graph
	tag, err := graph.DeleteEdgeTag(params.ID)
	if err != nil {
		return emitError(c, err)
	}
	return c.JSON(http.StatusOK, tag)
}

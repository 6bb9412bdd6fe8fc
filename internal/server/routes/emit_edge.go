package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/0ppliger/oam-broker/internal/server/middleware"
	"github.com/0ppliger/oam-broker/pkg/oam"
)

// CreateEdgeHandler resolves a relation emit between two live
// entities.
func CreateEdgeHandler(c echo.Context) error {
	type createEdgeBody struct {
		Type     string     `json:"type" validate:"required"`
		Relation oam.Fields `json:"relation" validate:"required"`
		From     string     `json:"from" validate:"required"`
		To       string     `json:"to" validate:"required"`
	}

	data := new(createEdgeBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
	}

	graph := c.(*middleware.AppContext).App.Graph
	edge, _, err := graph.CreateEdge(oam.TypedValue{Kind: data.Type, Fields: data.Relation}, data.From, data.To)
	if err != nil {
		return emitError(c, err)
	}
	return c.JSON(http.StatusOK, edge)
}

// UpdateEdgeHandler replaces the value of an existing edge. The
// endpoints must match the stored edge.
func UpdateEdgeHandler(c echo.Context) error {
	type updateEdgeParams struct {
		ID       string     `param:"id" validate:"required"`
		Type     string     `json:"type" validate:"required"`
		Relation oam.Fields `json:"relation" validate:"required"`
		From     string     `json:"from" validate:"required"`
		To       string     `json:"to" validate:"required"`
	}

	data := new(updateEdgeParams)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
	}

	graph := c.(*middleware.AppContext).App.Graph
	edge, _, err := graph.UpdateEdge(data.ID, oam.TypedValue{Kind: data.Type, Fields: data.Relation}, data.From, data.To)
	if err != nil {
		return emitError(c, err)
	}
	return c.JSON(http.StatusOK, edge)
}

// DeleteEdgeHandler tombstones an edge and its tags.
func DeleteEdgeHandler(c echo.Context) error {
	type deleteEdgeParams struct {
		ID string `param:"id" validate:"required"`
	}

	params := new(deleteEdgeParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
	}

	graph := c.(*middleware.AppContext).App.Graph
	edge, err := graph.DeleteEdge(params.ID)
	if err != nil {
		return emitError(c, err)
	}
	return c.JSON(http.StatusOK, edge)
}

package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ngavde/education-management/internal/models"
	"github.com/ngavde/education-management/internal/services"
)

// MeritListHandler serves merit list tools, their generation and exports
type MeritListHandler struct {
	lists  *services.MeritListService
	export *services.ExportService
}

// NewMeritListHandler creates a new merit list handler
func NewMeritListHandler(lists *services.MeritListService, export *services.ExportService) *MeritListHandler {
	return &MeritListHandler{lists: lists, export: export}
}

// Create saves a new merit list tool
func (h *MeritListHandler) Create(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req services.MeritListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid merit list", err)
		return
	}

	tool, err := h.lists.Create(c.Request.Context(), req, a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tool)
}

// List returns the merit list tools visible to the caller
func (h *MeritListHandler) List(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	tools, err := h.lists.List(c.Request.Context(), a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"merit_lists": tools,
		"count":       len(tools),
	})
}

// Get returns one merit list tool with its last results
func (h *MeritListHandler) Get(c *gin.Context) {
	h.withTool(c, func(tool *models.MeritListTool) {
		c.JSON(http.StatusOK, tool)
	})
}

// Delete removes a merit list tool
func (h *MeritListHandler) Delete(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.lists.Delete(c.Request.Context(), id, a); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PatchFilters changes filter fields. Any change clears the generated list.
func (h *MeritListHandler) PatchFilters(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var patch models.FilterPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "invalid filters", err)
		return
	}

	tool, err := h.lists.PatchFilters(c.Request.Context(), id, patch, a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tool)
}

// Generate runs the merit list query and stores the results
func (h *MeritListHandler) Generate(c *gin.Context) {
	h.run(c, h.lists.Generate)
}

// RefreshRanking recomputes stored ranks then regenerates the list
func (h *MeritListHandler) RefreshRanking(c *gin.Context) {
	h.run(c, h.lists.Refresh)
}

type toolAction func(ctx context.Context, id uuid.UUID, actor models.Actor) (*models.MeritListTool, error)

func (h *MeritListHandler) run(c *gin.Context, fn toolAction) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	tool, err := fn(c.Request.Context(), id, a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    tool.Summary,
		"merit_list": tool,
	})
}

// Export downloads the generated list as pdf, excel or csv
func (h *MeritListHandler) Export(c *gin.Context) {
	format := services.ExportFormat(strings.ToLower(c.Param("format")))
	h.withTool(c, func(tool *models.MeritListTool) {
		artifact, err := h.export.Export(tool, format)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+artifact.Filename+`"`)
		c.Data(http.StatusOK, artifact.ContentType, artifact.Data)
	})
}

// Results renders the generated list as an HTML table
func (h *MeritListHandler) Results(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	page, err := h.lists.RenderHTML(c.Request.Context(), id, a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

func (h *MeritListHandler) withTool(c *gin.Context, fn func(*models.MeritListTool)) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	tool, err := h.lists.Get(c.Request.Context(), id, a)
	if err != nil {
		respondError(c, err)
		return
	}
	fn(tool)
}

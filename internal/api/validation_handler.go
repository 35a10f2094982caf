package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ngavde/education-management/internal/models"
	"github.com/ngavde/education-management/internal/services"
)

// ValidationHandler serves reviewer validation records
type ValidationHandler struct {
	workflow *services.ValidationWorkflow
}

// NewValidationHandler creates a new validation record handler
func NewValidationHandler(workflow *services.ValidationWorkflow) *ValidationHandler {
	return &ValidationHandler{workflow: workflow}
}

// Create opens a validation record for a submission
func (h *ValidationHandler) Create(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	record, err := h.workflow.CreateValidationRecord(c.Request.Context(), c.Param("ref"), a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// Pending lists open validation records
func (h *ValidationHandler) Pending(c *gin.Context) {
	records, err := h.workflow.PendingValidations(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"validations": records,
		"count":       len(records),
	})
}

// Get returns one validation record
func (h *ValidationHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	record, err := h.workflow.GetValidationRecord(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// Update saves the verified score or comments on an open record
func (h *ValidationHandler) Update(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in services.ReviewUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid review update", err)
		return
	}

	record, err := h.workflow.UpdateValidationRecord(c.Request.Context(), id, in, a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// DecisionRequest closes a validation record
type DecisionRequest struct {
	Action string `json:"action" binding:"required"`
	services.ReviewUpdate
}

// Decide approves or rejects through a validation record
func (h *ValidationHandler) Decide(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid decision", err)
		return
	}

	record, err := h.workflow.DecideValidationRecord(c.Request.Context(), id, models.ValidationAction(req.Action), req.ReviewUpdate, a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

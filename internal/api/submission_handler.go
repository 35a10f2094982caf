package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ngavde/education-management/internal/models"
	"github.com/ngavde/education-management/internal/services"
)

// SubmissionHandler serves merit score submissions and their validation
type SubmissionHandler struct {
	submissions *services.SubmissionService
	workflow    *services.ValidationWorkflow
}

// NewSubmissionHandler creates a new submission handler
func NewSubmissionHandler(submissions *services.SubmissionService, workflow *services.ValidationWorkflow) *SubmissionHandler {
	return &SubmissionHandler{submissions: submissions, workflow: workflow}
}

// Create stores a new draft submission
func (h *SubmissionHandler) Create(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var in models.MeritSubmissionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid submission", err)
		return
	}

	sub, err := h.submissions.Create(c.Request.Context(), in, a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

// List returns submissions matching the query filters
func (h *SubmissionHandler) List(c *gin.Context) {
	params := services.ListParams{
		AcademicYear:     c.Query("academic_year"),
		Program:          c.Query("program"),
		StudentApplicant: c.Query("student_applicant"),
		ValidationStatus: c.Query("validation_status"),
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			badRequest(c, "invalid limit", err)
			return
		}
		params.Limit = n
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			badRequest(c, "invalid offset", err)
			return
		}
		params.Offset = n
	}

	subs, err := h.submissions.List(c.Request.Context(), params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"submissions": subs,
		"count":       len(subs),
	})
}

// Get returns one submission by id or name
func (h *SubmissionHandler) Get(c *gin.Context) {
	sub, err := h.submissions.Get(c.Request.Context(), c.Param("ref"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// Update replaces the editable fields of a submission
func (h *SubmissionHandler) Update(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var in models.MeritSubmissionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid submission", err)
		return
	}

	sub, err := h.submissions.Update(c.Request.Context(), c.Param("ref"), in, a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// Submit moves a draft into the validation queue
func (h *SubmissionHandler) Submit(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	sub, err := h.submissions.Submit(c.Request.Context(), c.Param("ref"), a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// Cancel withdraws a submitted submission
func (h *SubmissionHandler) Cancel(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	sub, err := h.submissions.Cancel(c.Request.Context(), c.Param("ref"), a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// ValidateRequest is the body of a validate call
type ValidateRequest struct {
	Action   string `json:"action" binding:"required"`
	Comments string `json:"comments"`
}

// Validate approves or rejects a pending submission
func (h *SubmissionHandler) Validate(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid validation request", err)
		return
	}

	sub, err := h.workflow.Validate(c.Request.Context(), c.Param("ref"), models.ValidationAction(req.Action), req.Comments, a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    "Merit submission " + string(sub.ValidationStatus),
		"submission": sub,
	})
}

// DocumentVerificationRequest is the body of a document verification call
type DocumentVerificationRequest struct {
	Status string `json:"status" binding:"required"`
}

// VerifyDocuments records the document verification outcome
func (h *SubmissionHandler) VerifyDocuments(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req DocumentVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid document verification request", err)
		return
	}

	sub, err := h.workflow.UpdateDocumentVerification(c.Request.Context(), c.Param("ref"), models.DocumentVerificationStatus(req.Status), a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

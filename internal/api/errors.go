package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ngavde/education-management/internal/auth"
	apperrors "github.com/ngavde/education-management/internal/errors"
	"github.com/ngavde/education-management/internal/models"
)

var statusByCode = map[string]int{
	apperrors.ErrCodeNotFound:           http.StatusNotFound,
	apperrors.ErrCodeInvalidInput:       http.StatusBadRequest,
	apperrors.ErrCodeUnauthorized:       http.StatusUnauthorized,
	apperrors.ErrCodeForbidden:          http.StatusForbidden,
	apperrors.ErrCodeValidationError:    http.StatusUnprocessableEntity,
	apperrors.ErrCodeInvalidState:       http.StatusConflict,
	apperrors.ErrCodeConflict:           http.StatusConflict,
	apperrors.ErrCodePreconditionFailed: http.StatusPreconditionFailed,
	apperrors.ErrCodeDatabaseError:      http.StatusInternalServerError,
	apperrors.ErrCodeInternalError:      http.StatusInternalServerError,
	apperrors.ErrCodeServiceError:       http.StatusServiceUnavailable,
}

// HTTPStatus maps an error to its response status
func HTTPStatus(err error) int {
	if status, ok := statusByCode[apperrors.CodeOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// respondError writes err as JSON. Server-side failures keep their cause
// out of the response.
func respondError(c *gin.Context, err error) {
	status := HTTPStatus(err)
	body := gin.H{"error": err.Error()}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		body["error"] = appErr.Message
		body["code"] = appErr.Code
		if appErr.Details != "" {
			body["details"] = appErr.Details
		}
	}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		if appErr == nil {
			body["error"] = "internal server error"
		}
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, message string, err error) {
	respondError(c, apperrors.InvalidInput(message+": "+err.Error(), err))
}

// actor returns the authenticated caller. Routes are mounted behind
// JWTMiddleware so a missing actor means a wiring error.
func actor(c *gin.Context) (models.Actor, bool) {
	a, ok := auth.ActorFromContext(c)
	if !ok {
		respondError(c, apperrors.Unauthorized("authentication required", nil))
		return models.Actor{}, false
	}
	return a, true
}

func idParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, apperrors.InvalidInput("invalid "+name+": "+c.Param(name), err))
		return uuid.Nil, false
	}
	return id, true
}

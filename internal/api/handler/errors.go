package handler

import (
	"errors"
	"log"
	"net/http"

	"fixitfast/backend/internal/apperrors"

	"github.com/gin-gonic/gin"
)

// statusFor maps engine failures to HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case apperrors.IsScope(err):
		return http.StatusForbidden, "scope_error"
	case apperrors.IsAuthorization(err):
		return http.StatusForbidden, "authorization_mismatch"
	case apperrors.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case apperrors.IsInvalidTransition(err):
		return http.StatusConflict, "invalid_transition"
	case apperrors.IsTerminalState(err):
		return http.StatusConflict, "terminal_state_violation"
	case apperrors.IsMissingNote(err):
		return http.StatusBadRequest, "missing_note"
	case apperrors.IsValidation(err):
		return http.StatusBadRequest, "validation_error"
	}
	return http.StatusInternalServerError, "internal_error"
}

func writeError(c *gin.Context, err error) {
	status, kind := statusFor(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("ERROR: %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		var se *apperrors.StorageError
		if errors.As(err, &se) {
			msg = "storage unavailable"
		} else {
			msg = "internal error"
		}
	}

	c.JSON(status, gin.H{"error": msg, "kind": kind})
}

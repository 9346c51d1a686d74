package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"budgetly-be/internal/apperrors"
	"budgetly-be/internal/logger"
)

// respondError maps a service error to its HTTP status. Storage and
// unclassified failures are logged and answered with a generic message.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperrors.KindOf(err) {
	case apperrors.KindNotFound:
		status = http.StatusNotFound
	case apperrors.KindUnauthorized:
		status = http.StatusUnauthorized
	case apperrors.KindInvalidInput:
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		logger.FromContext(c.Request.Context()).WithError(err).Error("request failed",
			logger.FieldPath, c.FullPath())
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": apperrors.Message(err)})
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request body",
		"details": err.Error(),
	})
}

// parseDate accepts an RFC 3339 timestamp or a bare YYYY-MM-DD date (taken as UTC midnight)
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}
	return time.Time{}, apperrors.InvalidInput(
		fmt.Sprintf("invalid date %q: use RFC 3339 or YYYY-MM-DD", value), nil)
}

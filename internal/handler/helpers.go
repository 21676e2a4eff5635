package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"portalwarga/internal/identity"
	"portalwarga/internal/service"
	"portalwarga/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// statusFor maps service errors onto an HTTP status and an envelope code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, response.CodeValidation
	case errors.Is(err, identity.ErrUnauthenticated):
		return http.StatusUnauthorized, response.CodeUnauthenticated
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, response.CodeForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, response.CodeNotFound
	case errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict, response.CodeInvalidTransition
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, response.CodeConflict
	default:
		return http.StatusInternalServerError, response.CodeInternal
	}
}

func respondError(c *gin.Context, err error) {
	status, code := statusFor(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, response.ErrorWithCode(status, code, err.Error()))
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, msg))
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// parseDate accepts YYYY-MM-DD (server local date) or RFC3339. Empty input yields nil.
func parseDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if t, err := time.ParseInLocation(dateLayout, value, time.Local); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD", service.ErrValidation, value)
	}
	return &t, nil
}

func parseOptionalUUID(value, field string) (*uuid.UUID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s", service.ErrValidation, field)
	}
	return &id, nil
}

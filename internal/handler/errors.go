package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/middleware"
	"github.com/stemsi/exam-portal/internal/response"
	"github.com/stemsi/exam-portal/internal/service"
)

// domainErrors maps service errors to their HTTP status and error code.
var domainErrors = []struct {
	err    error
	status int
	code   response.ErrCode
}{
	{service.ErrNotFound, http.StatusNotFound, response.ErrNotFound},
	{service.ErrForbidden, http.StatusForbidden, response.ErrForbidden},
	{service.ErrAlreadyAttempted, http.StatusConflict, response.ErrAlreadyAttempted},
	{service.ErrAlreadySubmitted, http.StatusConflict, response.ErrAlreadySubmitted},
	{service.ErrNotStarted, http.StatusConflict, response.ErrNotStarted},
	{service.ErrExamNotAvailable, http.StatusForbidden, response.ErrExamNotAvailable},
	{service.ErrNotYetCompleted, http.StatusConflict, response.ErrNotYetCompleted},
	{service.ErrInvalidSchedule, http.StatusBadRequest, response.ErrInvalidRange},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, response.ErrInvalidCredentials},
	{service.ErrDuplicateUser, http.StatusConflict, response.ErrConflict},
	{service.ErrSweepInProgress, http.StatusConflict, response.ErrSweepInProgress},
}

// failWithError writes the response for err. Unknown errors are logged and
// reported as INTERNAL_ERROR without detail.
func failWithError(c *gin.Context, log zerolog.Logger, err error) {
	for _, d := range domainErrors {
		if errors.Is(err, d.err) {
			response.Fail(c, d.status, d.code)
			return
		}
	}

	log.Error().
		Err(err).
		Str("request_id", response.RequestID(c)).
		Str("method", c.Request.Method).
		Str("route", c.FullPath()).
		Msg("Request failed")
	response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
}

// uuidParam parses a UUID path parameter, writing INVALID_ID on failure.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// identity returns the caller established by the auth middleware.
func identity(c *gin.Context) (service.Identity, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return service.Identity{}, false
	}
	return claims.Identity(), true
}

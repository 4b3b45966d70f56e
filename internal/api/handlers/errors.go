package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"driver-punch-api-server/internal/auth"
	"driver-punch-api-server/internal/drivers"
	"driver-punch-api-server/internal/face"
	"driver-punch-api-server/internal/models"
	"driver-punch-api-server/internal/punch"
	"driver-punch-api-server/internal/returns"
)

// errorStatus lists the domain errors that reach clients as-is.
var errorStatus = []struct {
	err    error
	status int
}{
	{auth.ErrInvalidCredentials, http.StatusUnauthorized},
	{auth.ErrInvalidToken, http.StatusUnauthorized},
	{auth.ErrEmailTaken, http.StatusConflict},
	{auth.ErrDriverLinked, http.StatusConflict},
	{auth.ErrAdminSignUpClosed, http.StatusForbidden},
	{auth.ErrInvalidRole, http.StatusBadRequest},
	{auth.ErrInvalidEmail, http.StatusBadRequest},
	{auth.ErrWeakPassword, http.StatusBadRequest},
	{auth.ErrDriverRequired, http.StatusBadRequest},
	{auth.ErrUnknownDriver, http.StatusBadRequest},

	{drivers.ErrDuplicateID, http.StatusConflict},
	{drivers.ErrInvalidPIN, http.StatusBadRequest},
	{drivers.ErrNameRequired, http.StatusBadRequest},
	{drivers.ErrEmptyFace, http.StatusBadRequest},
	{drivers.ErrDriverInactive, http.StatusForbidden},

	{punch.ErrDriverNotFound, http.StatusNotFound},
	{punch.ErrDriverInactive, http.StatusForbidden},
	{punch.ErrInvalidPIN, http.StatusUnauthorized},
	{punch.ErrFaceMismatch, http.StatusUnauthorized},
	{punch.ErrFaceNotEnrolled, http.StatusConflict},
	{punch.ErrFaceOutdated, http.StatusConflict},
	{punch.ErrConcurrentPunch, http.StatusConflict},

	{face.ErrInvalidDescriptor, http.StatusBadRequest},
	{face.ErrModelUnavailable, http.StatusServiceUnavailable},

	{returns.ErrDriverNotFound, http.StatusNotFound},
	{returns.ErrDriverInactive, http.StatusForbidden},
	{returns.ErrPunchNotFound, http.StatusUnprocessableEntity},
	{returns.ErrPunchNotOwned, http.StatusUnprocessableEntity},
	{returns.ErrPunchNotIn, http.StatusUnprocessableEntity},
	{returns.ErrInvalidDecision, http.StatusBadRequest},

	{models.ErrNotFound, http.StatusNotFound},
}

// respondError maps err to a status and writes {"error": ...}. Unknown errors are
// logged and hidden behind a generic 500.
func respondError(c *gin.Context, log *slog.Logger, err error) {
	var verr *returns.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid return form", "fields": verr.Fields})
		return
	}
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			c.JSON(e.status, gin.H{"error": err.Error()})
			return
		}
	}
	_ = c.Error(err)
	log.Error("request failed", "route", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

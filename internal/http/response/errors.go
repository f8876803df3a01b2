package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/loopworks/traintrack-backend/internal/platform/apierr"
	"github.com/loopworks/traintrack-backend/internal/services"
)

// RespondServiceError maps the service error taxonomy onto HTTP statuses.
// Not-found and invalid-transition errors are the caller's fault and carry
// codes the client can branch on; anything unrecognized is a 500 with the
// detail hidden behind a generic message.
func RespondServiceError(c *gin.Context, err error) {
	if ae := apierr.From(err); ae != nil {
		RespondError(c, ae.Status, ae.Code, ae)
		return
	}
	switch {
	case errors.Is(err, services.ErrCourseNotFound):
		RespondError(c, http.StatusNotFound, "course_not_found", err)
	case errors.Is(err, services.ErrLevelNotFound):
		RespondError(c, http.StatusNotFound, "level_not_found", err)
	case errors.Is(err, services.ErrInvalidTransition):
		RespondError(c, http.StatusConflict, "invalid_transition", err)
	case errors.Is(err, services.ErrPrematureIssuance):
		RespondError(c, http.StatusConflict, "course_incomplete", err)
	case errors.Is(err, services.ErrEmailTaken):
		RespondError(c, http.StatusConflict, "email_taken", err)
	case errors.Is(err, services.ErrInvalidCredentials):
		RespondError(c, http.StatusUnauthorized, "invalid_credentials", err)
	case errors.Is(err, services.ErrStorageUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		RespondError(c, http.StatusServiceUnavailable, "storage_unavailable",
			errors.New("storage temporarily unavailable"))
	default:
		RespondError(c, http.StatusInternalServerError, "internal_error",
			errors.New("internal error"))
	}
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/loopworks/traintrack-backend/internal/http/response"
	"github.com/loopworks/traintrack-backend/internal/platform/ctxutil"
	"github.com/loopworks/traintrack-backend/internal/services"
)

type ProgressionHandler struct {
	progressionService services.ProgressionService
}

func NewProgressionHandler(progressionService services.ProgressionService) *ProgressionHandler {
	return &ProgressionHandler{progressionService: progressionService}
}

// GetCourseProgress materializes the worker's ledger for the course on first
// touch and returns the derived tree.
func (ph *ProgressionHandler) GetCourseProgress(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return
	}
	tree, err := ph.progressionService.InitializeOrGetProgress(c.Request.Context(), rd.WorkerID, courseID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, tree)
}

func (ph *ProgressionHandler) StartLevel(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	levelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_level_id", err)
		return
	}
	tree, err := ph.progressionService.MarkLevelStarted(c.Request.Context(), rd.WorkerID, levelID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, tree)
}

func (ph *ProgressionHandler) CompleteLevel(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	levelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_level_id", err)
		return
	}

	var req struct {
		Score datatypes.JSON `json:"score"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}

	result, err := ph.progressionService.RecordLevelCompletion(c.Request.Context(), rd.WorkerID, levelID, req.Score)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, result)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/loopworks/traintrack-backend/internal/http/response"
	"github.com/loopworks/traintrack-backend/internal/services"
)

type CatalogHandler struct {
	catalogService services.CatalogService
}

func NewCatalogHandler(catalogService services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

func (ch *CatalogHandler) CreateCourse(c *gin.Context) {
	var req services.CourseInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	course, err := ch.catalogService.CreateCourse(c.Request.Context(), req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, course)
}

func (ch *CatalogHandler) ListCourses(c *gin.Context) {
	courses, err := ch.catalogService.ListCourses(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"courses": courses})
}

func (ch *CatalogHandler) GetCourse(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return
	}
	course, err := ch.catalogService.GetCourse(c.Request.Context(), courseID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	levels, err := ch.catalogService.GetOrderedLevels(c.Request.Context(), courseID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	course.Levels = levels
	response.RespondOK(c, course)
}

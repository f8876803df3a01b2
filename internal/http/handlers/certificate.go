package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/loopworks/traintrack-backend/internal/http/response"
	"github.com/loopworks/traintrack-backend/internal/platform/ctxutil"
	"github.com/loopworks/traintrack-backend/internal/services"
)

type CertificateHandler struct {
	certificateService services.CertificateService
}

func NewCertificateHandler(certificateService services.CertificateService) *CertificateHandler {
	return &CertificateHandler{certificateService: certificateService}
}

func (ch *CertificateHandler) GetCourseCertificate(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return
	}
	cert, err := ch.certificateService.GetForCourse(c.Request.Context(), rd.WorkerID, courseID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	if cert == nil {
		response.RespondError(c, http.StatusNotFound, "certificate_not_found",
			errors.New("no certificate for this course"))
		return
	}
	response.RespondOK(c, cert)
}

func (ch *CertificateHandler) ListCertificates(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	certs, err := ch.certificateService.ListForWorker(c.Request.Context(), rd.WorkerID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"certificates": certs})
}

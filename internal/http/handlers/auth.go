package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/loopworks/traintrack-backend/internal/http/response"
	"github.com/loopworks/traintrack-backend/internal/platform/ctxutil"
	"github.com/loopworks/traintrack-backend/internal/services"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (ah *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	result, err := ah.authService.Register(c.Request.Context(), req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{
		"worker":       result.Worker,
		"access_token": result.AccessToken,
		"expires_at":   result.ExpiresAt,
	})
}

func (ah *AuthHandler) Login(c *gin.Context) {
	var req services.LoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	result, err := ah.authService.Login(c.Request.Context(), req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"worker":       result.Worker,
		"access_token": result.AccessToken,
		"expires_at":   result.ExpiresAt,
	})
}

func (ah *AuthHandler) GetMe(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	worker, err := ah.authService.GetWorker(c.Request.Context(), rd.WorkerID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, worker)
}

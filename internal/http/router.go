package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/loopworks/traintrack-backend/internal/http/handlers"
	httpMW "github.com/loopworks/traintrack-backend/internal/http/middleware"
	"github.com/loopworks/traintrack-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	AuthHandler    *httpH.AuthHandler
	AuthMiddleware *httpMW.AuthMiddleware

	CatalogHandler     *httpH.CatalogHandler
	ProgressionHandler *httpH.ProgressionHandler
	CertificateHandler *httpH.CertificateHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/register", cfg.AuthHandler.Register)
			api.POST("/login", cfg.AuthHandler.Login)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		if cfg.AuthHandler != nil {
			protected.GET("/me", cfg.AuthHandler.GetMe)
		}

		// Catalog
		if cfg.CatalogHandler != nil {
			protected.GET("/courses", cfg.CatalogHandler.ListCourses)
			protected.POST("/courses", cfg.CatalogHandler.CreateCourse)
			protected.GET("/courses/:id", cfg.CatalogHandler.GetCourse)
		}

		// Progression
		if cfg.ProgressionHandler != nil {
			protected.GET("/courses/:id/progress", cfg.ProgressionHandler.GetCourseProgress)
			protected.POST("/levels/:id/start", cfg.ProgressionHandler.StartLevel)
			protected.POST("/levels/:id/complete", cfg.ProgressionHandler.CompleteLevel)
		}

		// Certificates
		if cfg.CertificateHandler != nil {
			protected.GET("/courses/:id/certificate", cfg.CertificateHandler.GetCourseCertificate)
			protected.GET("/certificates", cfg.CertificateHandler.ListCertificates)
		}
	}

	return r
}

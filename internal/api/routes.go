package api

import (
	"fitdesk/backoffice/internal/domain"
	"fitdesk/backoffice/internal/metrics"
	"fitdesk/backoffice/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Services groups the dependencies of the HTTP layer.
type Services struct {
	Auth     service.AuthService
	Exercise service.ExerciseService
	Template service.TemplateService
	Export   service.ExportService
}

func SetupRoutes(router *gin.Engine, jwtSecret string, services Services, logger *zap.Logger) {
	authHandler := NewAuthHandler(services.Auth, logger)
	exerciseHandler := NewExerciseHandler(services.Exercise)
	templateHandler := NewTemplateHandler(services.Template, services.Export, logger)

	router.Use(RequestID(), RequestLogger(logger))

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(AuthMiddleware(jwtSecret))
	{
		protected.GET("/me", authHandler.Me)

		exerciseGroup := protected.Group("/exercises")
		exerciseGroup.Use(RoleMiddleware(domain.RoleTrainer))
		{
			exerciseGroup.POST("", exerciseHandler.CreateExercise)
			exerciseGroup.GET("", exerciseHandler.GetTrainerExercises)
			exerciseGroup.GET("/:exerciseId", exerciseHandler.GetExercise)
			exerciseGroup.PUT("/:exerciseId", exerciseHandler.UpdateExercise)
			exerciseGroup.DELETE("/:exerciseId", exerciseHandler.DeleteExercise)
		}

		templateGroup := protected.Group("/templates")
		templateGroup.Use(RoleMiddleware(domain.RoleTrainer))
		{
			templateGroup.POST("", templateHandler.CreateTemplate)
			templateGroup.GET("", templateHandler.ListTemplates)
			templateGroup.GET("/:templateId", templateHandler.GetTemplate)
			templateGroup.DELETE("/:templateId", templateHandler.DeleteTemplate)

			templateGroup.POST("/:templateId/ranges", templateHandler.CreateRange)
			templateGroup.PUT("/:templateId/ranges/:rangeId", templateHandler.UpdateRange)
			templateGroup.DELETE("/:templateId/ranges/:rangeId", templateHandler.DeleteRange)

			templateGroup.POST("/:templateId/exports", templateHandler.ExportTemplate)
		}
	}
}

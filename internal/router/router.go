// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/munidigital/ventanilla-backend/internal/config"
	"github.com/munidigital/ventanilla-backend/internal/handlers"
	"github.com/munidigital/ventanilla-backend/internal/middleware"
	"github.com/munidigital/ventanilla-backend/internal/models"
	"github.com/munidigital/ventanilla-backend/internal/services"
	"github.com/munidigital/ventanilla-backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// Initialize services
	notificationService := services.NewNotificationService(cfg)
	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize storage service")
	}

	authService := services.NewAuthService(db, cfg, notificationService)
	patentService := services.NewPatentService(db, notificationService, cfg.Patents)
	statsService := services.NewStatsService(db)
	catalogService := services.NewCatalogService(db, storageService)
	portalService := services.NewPortalService(db)
	adminService := services.NewAdminService(db)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	patentHandler := handlers.NewPatentRequestHandler(patentService, statsService)
	formHandler := handlers.NewPatentFormHandler(catalogService)
	requirementHandler := handlers.NewPatentRequirementHandler(catalogService)
	portalHandler := handlers.NewPortalHandler(portalService)
	adminHandler := handlers.NewAdminHandler(adminService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Frontend.BaseURL))
	r.Use(middleware.GeneralRateLimit())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/forgot-password", authHandler.ForgotPassword)
			auth.POST("/reset-password", authHandler.ResetPassword)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
		}

		// Public information portal
		portal := v1.Group("/portal")
		{
			portal.GET("/departamentos", portalHandler.ListDepartments)
			portal.GET("/departamentos/:slug", portalHandler.GetDepartment)
			portal.GET("/departamentos/:slug/:category", portalHandler.GetCategory)
			portal.GET("/departamentos/:slug/:category/:procedure", portalHandler.GetProcedure)
			portal.GET("/buscar", portalHandler.Search)
		}

		// Public form template downloads
		v1.GET("/formularios/:id/download", formHandler.DownloadTemplate)

		// Contribuyente routes
		contribuyente := v1.Group("/contribuyente")
		contribuyente.Use(
			middleware.AuthRequired(),
			middleware.ActiveUser(db),
			middleware.RoleRequired(models.UserRoleContribuyente),
		)
		{
			contribuyente.GET("/dashboard", patentHandler.GetMyStats)
			contribuyente.GET("/patentes", patentHandler.ListMyRequests)
			contribuyente.POST("/patentes", patentHandler.CreateRequest)
			contribuyente.GET("/patentes/:code", patentHandler.GetMyRequest)
		}

		// Funcionario (rentas) routes
		funcionario := v1.Group("/funcionario")
		funcionario.Use(
			middleware.AuthRequired(),
			middleware.ActiveUser(db),
			middleware.RoleRequired(models.UserRoleFuncionario, models.UserRoleAdmin),
			middleware.DepartmentRequired(models.DepartmentRentas),
		)
		{
			funcionario.GET("/dashboard", patentHandler.GetDashboardStats)

			patentes := funcionario.Group("/patentes")
			{
				patentes.GET("", patentHandler.ListRequests)
				patentes.GET("/:code", patentHandler.GetRequest)
				patentes.PUT("/:code/approve", patentHandler.ApproveRequest)
				patentes.PUT("/:code/reject", patentHandler.RejectRequest)
				patentes.PUT("/:code/reject-with-observations", patentHandler.RejectRequestWithObservations)
			}

			formularios := funcionario.Group("/formularios")
			{
				formularios.GET("", formHandler.ListForms)
				formularios.POST("", middleware.UploadRateLimit(), formHandler.CreateForm)
				formularios.PUT("/:id", middleware.UploadRateLimit(), formHandler.UpdateForm)
				formularios.DELETE("/:id", formHandler.DeleteForm)
			}

			requisitos := funcionario.Group("/requisitos")
			{
				requisitos.GET("", requirementHandler.ListRequirements)
				requisitos.GET("/:id", requirementHandler.GetRequirement)
				requisitos.POST("", requirementHandler.CreateRequirement)
				requisitos.PUT("/:id", requirementHandler.UpdateRequirement)
				requisitos.DELETE("/:id", requirementHandler.DeleteRequirement)
			}
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(
			middleware.AuthRequired(),
			middleware.ActiveUser(db),
			middleware.RoleRequired(models.UserRoleAdmin),
		)
		{
			funcionarios := admin.Group("/funcionarios")
			{
				funcionarios.GET("", adminHandler.ListOfficials)
				funcionarios.POST("", adminHandler.CreateOfficial)
				funcionarios.PUT("/:id", adminHandler.UpdateOfficial)
			}

			departamentos := admin.Group("/departamentos")
			{
				departamentos.POST("", adminHandler.CreateDepartment)
				departamentos.PUT("/:id", adminHandler.UpdateDepartment)
				departamentos.DELETE("/:id", adminHandler.DeleteDepartment)
			}

			categorias := admin.Group("/categorias")
			{
				categorias.POST("", adminHandler.CreateCategory)
				categorias.PUT("/:id", adminHandler.UpdateCategory)
				categorias.DELETE("/:id", adminHandler.DeleteCategory)
			}

			tramites := admin.Group("/tramites")
			{
				tramites.POST("", adminHandler.CreateProcedure)
				tramites.PUT("/:id", adminHandler.UpdateProcedure)
				tramites.DELETE("/:id", adminHandler.DeleteProcedure)
			}

			requisitos := admin.Group("/requisitos")
			{
				requisitos.GET("", adminHandler.ListPortalRequirements)
				requisitos.POST("", adminHandler.CreatePortalRequirement)
				requisitos.PUT("/:id", adminHandler.UpdatePortalRequirement)
				requisitos.DELETE("/:id", adminHandler.DeletePortalRequirement)
			}
		}
	}

	return r
}

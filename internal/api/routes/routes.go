package routes

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"driver-punch-api-server/config"
	"driver-punch-api-server/internal/api/handlers"
	"driver-punch-api-server/internal/api/middleware"
	"driver-punch-api-server/internal/auth"
	"driver-punch-api-server/internal/drivers"
	"driver-punch-api-server/internal/models"
	"driver-punch-api-server/internal/punch"
	"driver-punch-api-server/internal/returns"
	"driver-punch-api-server/internal/socket"
)

// Uploader stores exported return forms.
type Uploader = handlers.Uploader

// Dependencies are the services the router exposes.
type Dependencies struct {
	Config   config.Config
	Log      *slog.Logger
	Auth     *auth.Service
	Drivers  *drivers.Service
	Punch    *punch.Service
	Returns  *returns.Service
	Uploader Uploader // optional
	Hub      *socket.Hub
	Feed     *socket.Feed
	Ping     func(ctx context.Context) error
}

// SetupRouter wires handlers, middleware and the ambient endpoints.
func SetupRouter(d Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(d.Log))
	router.Use(cors.New(corsConfig(d.Config.Server.AllowedOrigins)))

	authHandler := &handlers.AuthHandler{Auth: d.Auth, Log: d.Log}
	driverHandler := &handlers.DriverHandler{Drivers: d.Drivers, Log: d.Log}
	punchHandler := &handlers.PunchHandler{Punch: d.Punch, Log: d.Log}
	returnFormHandler := &handlers.ReturnFormHandler{Returns: d.Returns, Uploader: d.Uploader, Log: d.Log}
	webSocketHandler := &handlers.WebSocketHandler{
		Hub:            d.Hub,
		Feed:           d.Feed,
		Auth:           d.Auth,
		Log:            d.Log,
		AllowedOrigins: d.Config.Server.AllowedOrigins,
	}
	healthHandler := &handlers.HealthHandler{Ping: d.Ping}

	router.GET("/health", healthHandler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	// Face model weights for the in-browser detector.
	router.Static("/models", d.Config.Face.ModelDir)

	authenticated := middleware.Authenticate(d.Auth)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.GET("/ws", webSocketHandler.ServeWs)

		authRoutes := apiV1.Group("/auth")
		{
			authRoutes.POST("/signup", authHandler.SignUp)
			authRoutes.POST("/signin", authHandler.SignIn)
			authRoutes.POST("/signout", authenticated, authHandler.SignOut)
			authRoutes.GET("/me", authenticated, authHandler.Me)
		}

		driverRoutes := apiV1.Group("/drivers/:driverId")
		driverRoutes.Use(authenticated, middleware.SelfOrAdmin("driverId"))
		{
			driverRoutes.GET("", driverHandler.GetDriver)
			driverRoutes.GET("/punch-state", punchHandler.GetPunchState)
			driverRoutes.POST("/punch/pin", punchHandler.PunchWithPIN)
			driverRoutes.POST("/punch/face", punchHandler.PunchWithFace)
			driverRoutes.POST("/face", driverHandler.EnrollFace)
		}

		forms := apiV1.Group("/return-forms")
		forms.Use(authenticated, middleware.Authorize(models.RoleAdmin, models.RoleDriver))
		{
			forms.POST("", returnFormHandler.SubmitReturnForm)
			forms.GET("", returnFormHandler.ListReturnForms)
			forms.GET("/:id", returnFormHandler.GetReturnForm)
			forms.GET("/:id/pdf", returnFormHandler.DownloadPDF)
		}

		admin := apiV1.Group("/admin")
		admin.Use(authenticated, middleware.Authorize(models.RoleAdmin))
		{
			admin.PATCH("/return-forms/:id/status", returnFormHandler.DecideReturnForm)
			admin.POST("/return-forms/:id/export", returnFormHandler.ExportReturnForm)
			admin.GET("/punch-logs", punchHandler.ListPunchLogs)

			adminDrivers := admin.Group("/drivers")
			{
				adminDrivers.POST("", driverHandler.CreateDriver)
				adminDrivers.GET("", driverHandler.ListDrivers)
				adminDrivers.GET("/:driverId", driverHandler.GetDriver)
				adminDrivers.PUT("/:driverId", driverHandler.UpdateDriver)
				adminDrivers.DELETE("/:driverId", driverHandler.DeleteDriver)
				adminDrivers.POST("/:driverId/deactivate", driverHandler.DeactivateDriver)
			}
		}
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

package handlers

import (
	"greenhouse_control/internal/logger"
	"greenhouse_control/internal/messaging"
	"greenhouse_control/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires the HTTP layer to services, the outbound messenger and logging.
type Handler struct {
	services  *service.Service
	messenger messaging.Sender
	log       *logger.Logger
}

func NewHandler(services *service.Service, messenger messaging.Sender, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{services: services, messenger: messenger, log: log}
}

// InitRoutes builds the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", h.health)

	// Messaging gateway callback; authenticated by the gateway, not by JWT.
	router.POST("/webhook", h.webhook)

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.requireOperator)
	{
		h.registerDeviceRoutes(api)
		h.registerScheduleRoutes(api)
		api.GET("/events", h.getEvents)
	}
}

func (h *Handler) registerDeviceRoutes(api *gin.RouterGroup) {
	devices := api.Group("/devices")
	{
		devices.GET("", h.listDevices)
		// Body example: {"on":true}
		devices.POST("/:device", h.setDevice)
	}
}

func (h *Handler) registerScheduleRoutes(api *gin.RouterGroup) {
	api.GET("/schedules", h.listSchedules)
	api.GET("/shutoffs", h.listShutoffs)
}

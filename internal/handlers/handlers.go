package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/cache"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/config"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/middleware"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/models"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/realtime"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/repository"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/service"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/storage"
)

// Dependencies are the process-level resources the HTTP layer is built from.
// Cache and Objects may be nil.
type Dependencies struct {
	Log       zerolog.Logger
	Config    *config.AppConfig
	Stores    repository.Stores
	Cache     *redis.Client
	Objects   *storage.ObjectStore
	Hub       *realtime.Hub
	Publisher realtime.Publisher
}

type HandlerSet struct {
	log         zerolog.Logger
	cfg         *config.AppConfig
	stores      repository.Stores
	cache       *redis.Client
	hub         *realtime.Hub
	auth        *service.AuthService
	avatars     *service.AvatarService
	ingestion   *service.IngestionService
	devices     *service.DeviceService
	sensors     *service.SensorService
	dashboard   *service.DashboardService
	energy      *service.EnergyService
	maintenance *service.MaintenanceService
	startedAt   time.Time
}

func NewHandlerSet(deps Dependencies) HandlerSet {
	cfg := deps.Config
	publisher := deps.Publisher
	if publisher == nil && deps.Hub != nil {
		publisher = deps.Hub
	}

	loc, err := time.LoadLocation(cfg.Dashboard.Timezone)
	if err != nil {
		loc = time.UTC
	}

	snapshot := cache.NewSnapshot(deps.Cache, cache.CurrentValuesKey, cache.CurrentValuesTTL)
	energy := service.NewEnergyService(deps.Stores, loc)

	var objects service.ObjectPutter
	if deps.Objects != nil {
		objects = deps.Objects
	}

	return HandlerSet{
		log:         deps.Log,
		cfg:         cfg,
		stores:      deps.Stores,
		cache:       deps.Cache,
		hub:         deps.Hub,
		auth:        service.NewAuthService(deps.Stores, cfg.Security, deps.Log),
		avatars:     service.NewAvatarService(deps.Stores.Users, objects, cfg.Security.JWTSecret, cfg.Storage.MaxAvatarSize, deps.Log),
		ingestion:   service.NewIngestionService(deps.Stores, snapshot, publisher, cfg.Ingestion, deps.Log),
		devices:     service.NewDeviceService(deps.Stores, publisher, deps.Log),
		sensors:     service.NewSensorService(deps.Stores, deps.Log),
		dashboard:   service.NewDashboardService(deps.Stores, snapshot, energy, deps.Log),
		energy:      energy,
		maintenance: service.NewMaintenanceService(deps.Stores, cfg, deps.Log),
		startedAt:   time.Now(),
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	requireAuth := middleware.Auth(h.auth, h.cfg.Security.CookieName)
	optionalAuth := middleware.OptionalAuth(h.auth, h.cfg.Security.CookieName)

	router.GET("/health", h.Health)
	router.GET("/status", h.Status)
	router.GET("/socket", optionalAuth, h.Socket)

	pages := router.Group("/", optionalAuth)
	{
		pages.GET("/", h.DashboardPage)
		pages.GET("/energy", h.EnergyPage)
		pages.GET("/temperature", h.TemperaturePage)
		pages.GET("/lighting", h.LightingPage)
		pages.GET("/appliances", h.AppliancesPage)
		pages.GET("/settings", h.SettingsPage)
	}

	auth := router.Group("/auth")
	{
		auth.POST("/register", optionalAuth, h.RegisterUser)
		auth.POST("/login", h.Login)
		auth.GET("/logout", optionalAuth, h.Logout)
		auth.GET("/me", requireAuth, h.Me)
		auth.POST("/change-password", requireAuth, h.ChangePassword)
		auth.POST("/avatar", requireAuth, h.UploadAvatar)
	}

	webhook := middleware.Webhook(h.cfg.Webhook, h.cache)
	router.POST("/webhook/sensor-data", webhook, h.DeviceWebhook)

	api := router.Group("/api")
	{
		api.GET("/current-values", h.CurrentValues)
		api.GET("/energy-data", h.EnergyData)
		api.POST("/sensordata", webhook, h.DeviceWebhook)
		api.POST("/sensor-data", optionalAuth, h.SubmitReading)

		protected := api.Group("", requireAuth)
		protected.GET("/energy-usage", h.EnergyUsage)

		sensors := protected.Group("/sensors")
		sensors.GET("", h.ListSensors)
		sensors.POST("", h.CreateSensor)
		sensors.POST("/data/bulk", h.SubmitBulk)
		sensors.GET("/stats/summary", h.SensorSummary)
		sensors.GET("/types/count", h.SensorTypeCounts)
		sensors.GET("/type/:type", h.SensorsByType)
		sensors.GET("/:id", h.GetSensor)
		sensors.PUT("/:id", h.UpdateSensor)
		sensors.DELETE("/:id", h.DeleteSensor)
		sensors.PATCH("/:id/status", h.SetSensorStatus)
		sensors.GET("/:id/data", h.SensorData)

		devices := protected.Group("/devices")
		devices.GET("", h.ListDevices)
		devices.POST("", h.CreateDevice)
		devices.GET("/:id", h.GetDevice)
		devices.PUT("/:id", h.UpdateDevice)
		devices.DELETE("/:id", h.DeleteDevice)
		devices.PATCH("/:id/status", h.SetDeviceStatus)
		devices.GET("/:id/stats", h.DeviceStats)

		admin := protected.Group("/admin", middleware.RequireRoles(models.UserRoleAdmin))
		admin.GET("/users", h.AdminListUsers)
		admin.POST("/retention/run", h.RunRetention)
	}
}

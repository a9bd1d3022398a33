package routes

import (
	"context"
	"net/http"
	"time"

	"campusguard/config"
	"campusguard/controllers"
	"campusguard/middleware"
	"campusguard/models"
	"campusguard/providers"
	"campusguard/repositories"
	"campusguard/services"
	"campusguard/utils"
	"campusguard/websocket"
	"campusguard/workers"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

var startTime = time.Now()

// App bundles the long-lived components main needs for lifecycle control.
type App struct {
	Router      *gin.Engine
	Coordinator *services.EmergencyCoordinator
	SyncWorker  *workers.SyncWorker
	Gateway     *providers.DeviceGateway
}

// SetupRoutes wires repositories, services, and controllers, and registers
// every route group.
func SetupRoutes(cfg *config.Config, client *mongo.Client, db *mongo.Database, redisClient *redis.Client, hub *websocket.Hub) *App {
	router := gin.New()

	repos := initializeRepositories(db)
	svcs := initializeServices(cfg, repos, redisClient, client, hub)
	ctrls := initializeControllers(cfg, repos, svcs)

	setupGlobalMiddleware(router)
	setupPublicRoutes(router, ctrls, client, redisClient)
	setupAuthenticatedRoutes(router, ctrls)
	setupWebSocketRoutes(router, ctrls.Auth, hub)

	return &App{
		Router:      router,
		Coordinator: svcs.Coordinator,
		SyncWorker:  svcs.SyncWorker,
		Gateway:     svcs.Gateway,
	}
}

// Repositories initialization
type Repositories struct {
	User      *repositories.UserRepository
	Emergency *repositories.EmergencyRepository
	Hazard    *repositories.HazardRepository
}

func initializeRepositories(db *mongo.Database) *Repositories {
	return &Repositories{
		User:      repositories.NewUserRepository(db),
		Emergency: repositories.NewEmergencyRepository(db),
		Hazard:    repositories.NewHazardRepository(db),
	}
}

// Services initialization
type Services struct {
	SessionStore *services.SessionStore
	OfflineQueue *services.OfflineQueue
	Tracker      *services.LocationTracker
	Audio        *services.AudioCaptureService
	Notification *services.NotificationService
	Coordinator  *services.EmergencyCoordinator
	Hazard       *services.HazardService
	SyncWorker   *workers.SyncWorker
	Gateway      *providers.DeviceGateway
}

func initializeServices(cfg *config.Config, repos *Repositories, redisClient *redis.Client, client *mongo.Client, hub *websocket.Hub) *Services {
	kv := repositories.NewRedisKV(redisClient)
	sessionStore := services.NewSessionStore(kv)
	offlineQueue := services.NewOfflineQueue(kv)

	gateway := providers.NewDeviceGateway()
	geocoder := providers.NewNominatimGeocoder()
	connectivity := providers.NewMongoConnectivityProbe(client)

	tracker := services.NewLocationTracker(gateway.LocationProvider(), geocoder, repos.Emergency, repos.User, hub)

	var blobStorage utils.BlobStorage
	if cfg.StorageBucket != "" {
		storage, err := utils.NewFirebaseStorage(context.Background(), cfg.FirebaseCredentials, cfg.StorageBucket)
		if err != nil {
			logrus.Warnf("Blob storage unavailable, audio uploads disabled: %v", err)
		} else {
			blobStorage = storage
		}
	} else {
		logrus.Warn("Storage bucket not configured, audio uploads disabled")
	}
	audio := services.NewAudioCaptureService(gateway.AudioRecorder(), blobStorage)

	sender, err := utils.NewNotificationSender(cfg.FirebaseCredentials, cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber)
	if err != nil {
		logrus.Warnf("Notification channels unavailable: %v", err)
		sender, _ = utils.NewNotificationSender("", "", "", "")
	}
	notification := services.NewNotificationService(sender, repos.User, repos.Emergency, hub, tracker)

	coordinator := services.NewEmergencyCoordinator(
		repos.Emergency,
		repos.User,
		tracker,
		audio,
		notification,
		offlineQueue,
		connectivity,
		hub,
	)

	syncWorker := workers.NewSyncWorker(
		offlineQueue,
		repos.Emergency,
		notification,
		connectivity,
		time.Duration(cfg.OfflineSyncInterval)*time.Second,
	)

	return &Services{
		SessionStore: sessionStore,
		OfflineQueue: offlineQueue,
		Tracker:      tracker,
		Audio:        audio,
		Notification: notification,
		Coordinator:  coordinator,
		Hazard:       services.NewHazardService(repos.Hazard, hub),
		SyncWorker:   syncWorker,
		Gateway:      gateway,
	}
}

// Controllers initialization
type Controllers struct {
	Auth      *middleware.AuthMiddleware
	AuthCtrl  *controllers.AuthController
	User      *controllers.UserController
	Emergency *controllers.EmergencyController
	Hazard    *controllers.HazardController
	Device    *controllers.DeviceController
}

func initializeControllers(cfg *config.Config, repos *Repositories, svcs *Services) *Controllers {
	jwtService := utils.NewJWTService(cfg.JWTSecret)

	return &Controllers{
		Auth:      middleware.NewAuthMiddleware(jwtService),
		AuthCtrl:  controllers.NewAuthController(repos.User, svcs.SessionStore, jwtService),
		User:      controllers.NewUserController(repos.User),
		Emergency: controllers.NewEmergencyController(svcs.Coordinator, repos.Emergency),
		Hazard:    controllers.NewHazardController(svcs.Hazard),
		Device:    controllers.NewDeviceController(svcs.Gateway, svcs.Tracker, repos.User),
	}
}

func setupGlobalMiddleware(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS())
}

func setupPublicRoutes(router *gin.Engine, ctrls *Controllers, client *mongo.Client, redisClient *redis.Client) {
	router.GET("/health", func(c *gin.Context) {
		checks := map[string]string{"database": "healthy", "cache": "healthy"}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := client.Ping(ctx, nil); err != nil {
			checks["database"] = "unhealthy"
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			checks["cache"] = "unhealthy"
		}

		resp := utils.HealthCheckResponse(checks, "1.0.0", time.Since(startTime).Round(time.Second).String())
		status := http.StatusOK
		if resp.Status != "healthy" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, resp)
	})

	public := router.Group("/api/v1")
	{
		public.POST("/auth/login", ctrls.AuthCtrl.Login)
	}
}

func setupAuthenticatedRoutes(router *gin.Engine, ctrls *Controllers) {
	api := router.Group("/api/v1")
	api.Use(ctrls.Auth.RequireAuth())

	auth := api.Group("/auth")
	{
		auth.GET("/session", ctrls.AuthCtrl.GetSession)
		auth.POST("/logout", ctrls.AuthCtrl.Logout)
	}

	users := api.Group("/users")
	{
		users.GET("/me", ctrls.User.GetProfile)
		users.PUT("/me/push-token", ctrls.User.RegisterPushToken)
		users.PUT("/me/availability", ctrls.User.SetAvailability)
		users.POST("/me/contacts", ctrls.User.CreateContact)
		users.GET("/me/contacts", ctrls.User.ListContacts)
		users.DELETE("/me/contacts/:contactId", ctrls.User.DeleteContact)
	}

	emergencies := api.Group("/emergencies")
	{
		emergencies.POST("", ctrls.Emergency.CreateEmergency)
		emergencies.GET("", ctrls.Emergency.ListEmergencies)
		emergencies.GET("/active", ctrls.Emergency.HasActiveEmergency)
		emergencies.GET("/:sessionId", ctrls.Emergency.GetEmergency)
		emergencies.PUT("/:sessionId/status", ctrls.Emergency.UpdateStatus)
		emergencies.POST("/:sessionId/updates", ctrls.Emergency.AddUpdate)
		emergencies.POST("/:sessionId/cancel", ctrls.Emergency.CancelEmergency)
		emergencies.POST("/:sessionId/stop", ctrls.Emergency.StopEmergency)
		emergencies.GET("/:sessionId/alerts", ctrls.Emergency.GetSessionAlerts)
	}

	responders := api.Group("/emergencies")
	responders.Use(ctrls.Auth.RequireRole(models.RoleSecurity, models.RoleStaff))
	{
		responders.GET("/dispatch/active", ctrls.Emergency.ListActiveEmergencies)
	}

	hazards := api.Group("/hazards")
	{
		hazards.POST("", ctrls.Hazard.CreateHazard)
		hazards.GET("", ctrls.Hazard.ListHazards)
		hazards.GET("/:hazardId", ctrls.Hazard.GetHazard)
		hazards.POST("/:hazardId/upvote", ctrls.Hazard.ToggleUpvote)
	}

	hazardAdmin := api.Group("/hazards")
	hazardAdmin.Use(ctrls.Auth.RequireRole(models.RoleSecurity, models.RoleStaff))
	{
		hazardAdmin.POST("/:hazardId/resolve", ctrls.Hazard.ResolveHazard)
	}

	device := api.Group("/device")
	{
		device.POST("/permissions", ctrls.Device.ReportPermissions)
		device.POST("/location", ctrls.Device.PushLocation)
		device.GET("/location/current", ctrls.Device.GetCurrentLocation)
		device.POST("/audio", ctrls.Device.PushAudioChunk)
	}
}

func setupWebSocketRoutes(router *gin.Engine, auth *middleware.AuthMiddleware, hub *websocket.Hub) {
	ws := router.Group("/ws")
	ws.Use(auth.RequireAuth())
	ws.GET("", func(c *gin.Context) {
		if err := websocket.ServeWS(hub, c.Writer, c.Request, utils.GetUserID(c), utils.GetUserRole(c)); err != nil {
			logrus.Warnf("WebSocket upgrade failed: %v", err)
		}
	})
}

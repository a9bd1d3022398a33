package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campusguard/config"
	"campusguard/database"
	"campusguard/routes"
	"campusguard/websocket"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	config.SetupLogging(cfg)

	client, db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logrus.Fatal("Failed to connect to database: ", err)
	}

	redisClient := config.InitRedis(cfg)

	hub := websocket.NewHub()
	go hub.Run()

	app := routes.SetupRoutes(cfg, client, db, redisClient, hub)
	app.SyncWorker.Start()

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        app.Router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logrus.Info("🚨 CampusGuard server starting on port ", cfg.Port)
		logrus.Info("📡 WebSocket endpoint: /ws")
		logrus.Info("💖 Health check: /health")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatal("Failed to start server: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Error("Server forced to shutdown: ", err)
	}

	app.Coordinator.Cleanup(ctx)
	app.SyncWorker.Stop()
	hub.Shutdown()

	if err := redisClient.Close(); err != nil {
		logrus.Warn("Failed to close Redis connection: ", err)
	}
	if err := database.Disconnect(client); err != nil {
		logrus.Warn("Failed to disconnect database: ", err)
	}

	logrus.Info("✅ Server shutdown complete")
}

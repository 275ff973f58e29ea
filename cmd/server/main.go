package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/wisecare-health/sos-gateway/pkg/api"
	"github.com/wisecare-health/sos-gateway/pkg/config"
	"github.com/wisecare-health/sos-gateway/pkg/services"
	"github.com/wisecare-health/sos-gateway/pkg/timeplus"
	"github.com/wisecare-health/sos-gateway/pkg/ws"
)

// @title WiseCare SOS Triage Gateway API
// @version 1.0
// @description API for triaging SOS emergency alerts
// @BasePath /api

func main() {
	// Configure log level from environment variable
	logLevelStr := os.Getenv("LOG_LEVEL")
	switch strings.ToLower(logLevelStr) {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn", "warning":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	case "fatal":
		logrus.SetLevel(logrus.FatalLevel)
	case "panic":
		logrus.SetLevel(logrus.PanicLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
	logrus.Infof("Log level set to: %s", logrus.GetLevel().String())

	// Parse command line flags
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Set up the Timeplus client
	tpClient, err := timeplus.NewClient(&cfg.Timeplus)
	if err != nil {
		logrus.Fatalf("Failed to create Timeplus client: %v", err)
	}

	// Set up required streams with proper schemas
	ctx, cancelFeeds := context.WithCancel(context.Background())
	if err := tpClient.SetupStreams(ctx); err != nil {
		logrus.Warnf("Failed to set up streams: %v", err)
	}

	// One live subscription per collection, shared by all consumers
	alertFeed := services.NewFeed(tpClient, timeplus.AlertsStream)
	responderFeed := services.NewFeed(tpClient, timeplus.RespondersStream)
	userFeed := services.NewFeed(tpClient, timeplus.UsersStream)

	// Triage service over the three feeds
	triageService := services.NewTriageService(tpClient)
	triageService.Start(ctx, alertFeed, responderFeed, userFeed)

	// WebSocket hub for toast fan-out to the dashboards
	hub := ws.NewHub()

	// Cross-cutting notification relay
	relay := services.NewNotificationRelay(
		time.Duration(cfg.Relay.WindowSeconds)*time.Second,
		cfg.Relay.Sound,
		hub,
	)
	relay.Start(ctx, alertFeed)

	// Consumers are subscribed; start the feeds so the backfill reaches them
	for name, feed := range map[string]*services.Feed{
		timeplus.AlertsStream:     alertFeed,
		timeplus.RespondersStream: responderFeed,
		timeplus.UsersStream:      userFeed,
	} {
		if err := feed.Start(ctx); err != nil {
			logrus.Fatalf("Failed to start feed for %s: %v", name, err)
		}
	}

	// Analytics snapshot on a cron schedule
	statsService, err := services.NewStatsService(triageService, cfg.Stats.Schedule)
	if err != nil {
		logrus.Fatalf("Failed to create stats service: %v", err)
	}
	statsService.Start()

	// Set up the Echo server
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// API routes
	apiHandler := api.NewAPIHandler(triageService, relay, statsService)
	apiHandler.SetupRoutes(e)

	// WebSocket endpoint for live toast notifications
	e.GET("/ws/notifications", echo.WrapHandler(hub))

	// Prometheus metrics
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Swagger documentation
	e.GET("/swagger/*", echo.WrapHandler(httpSwagger.Handler()))

	// Static files for UI
	e.Static("/", "./ui/build")

	// Use PORT environment variable if available, otherwise use config
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Server.Port
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start the server in a goroutine
	go func() {
		logrus.Infof("Starting server on port %s", port)
		if err := e.StartServer(server); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// Release subscriptions before tearing down the transport
	statsService.Stop()
	relay.Stop()
	triageService.Stop()
	cancelFeeds()
	alertFeed.Stop()
	responderFeed.Stop()
	userFeed.Stop()
	hub.Close()
	if err := tpClient.Close(); err != nil {
		logrus.Warnf("Error closing Timeplus client: %v", err)
	}

	// Create a deadline for graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	// Shutdown the server
	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.Fatalf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited properly")
}

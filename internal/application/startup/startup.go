// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TwistedArtistsGuild/tag-web/internal/application/container"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/persistence/database"
	"github.com/TwistedArtistsGuild/tag-web/internal/presentation/http/server"
	"github.com/TwistedArtistsGuild/tag-web/pkg/config"
)

// Initialize performs the startup sequence and blocks until SIGINT or
// SIGTERM, then shuts down gracefully.
func Initialize() error {
	setupLogging()
	start := time.Now().UTC()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	log.Println("Twisted Artists Guild web server starting...")

	// Step 1: Channeled logger
	logger, err := logging.NewChanneledLogger(container.NewLoggerConfig())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Startup().Info("Logger initialized - switching to channeled logging", "level", config.LogLevel, "json", config.LogJSON)

	// Step 2: Site configuration
	site, err := config.LoadSite(config.SiteConfigPath)
	if err != nil {
		return err
	}
	logger.Startup().Info("Site configuration loaded", "path", config.SiteConfigPath, "navItems", len(site.Nav), "themes", len(site.Themes))

	// Step 3: Dependency injection container
	containerStart := time.Now()
	appContainer, err := container.NewContainer(ctx, site, logger)
	if err != nil {
		logger.LogStartupPhase("container", time.Since(containerStart), false)
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	logger.LogStartupPhase("container", time.Since(containerStart), true)

	// Step 4: Background cleanup worker
	go appContainer.CleanupWorker.Start(ctx)
	logger.Startup().Info("Background cleanup worker started", "interval", config.CleanupInterval)

	// Step 5: HTTP server
	httpServer := server.New(config.Port, appContainer)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.Start()
	}()

	logger.Startup().Info("Application startup complete", "totalDuration", time.Since(start), "port", config.Port)

	select {
	case <-gracefulShutdown:
		logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")
	case err := <-serverErr:
		if err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
		}
	}

	shutdownStart := time.Now()
	cancelBackgroundTasks()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Shutdown().Info("Stopping HTTP server...")
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	}

	appContainer.CleanupWorker.Wait()

	if err := appContainer.Close(); err != nil {
		logger.Shutdown().Error("Error closing container", "error", err.Error())
	}

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart))
	return nil
}

// Migrate creates or upgrades the auth database schema and exits.
func Migrate(ctx context.Context) error {
	logger, err := logging.NewChanneledLogger(container.NewLoggerConfig())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	db, err := database.NewConnectionWithLogger(ctx, config.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	start := time.Now()
	if err := database.Migrate(ctx, db, logger); err != nil {
		return err
	}
	logger.Database().Info("Migration complete", "driver", db.Driver, "duration", time.Since(start))
	return nil
}

// setupLogging configures application logging
func setupLogging() {
	if config.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

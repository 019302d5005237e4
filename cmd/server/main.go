package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ChronusArtCenter/cosycoding/api/handlers"
	"github.com/ChronusArtCenter/cosycoding/internal/config"
	"github.com/ChronusArtCenter/cosycoding/internal/db"
	"github.com/ChronusArtCenter/cosycoding/internal/ratelimit"
	"github.com/ChronusArtCenter/cosycoding/internal/repository"
	"github.com/ChronusArtCenter/cosycoding/internal/storage"
	"github.com/ChronusArtCenter/cosycoding/internal/ws"
)

func main() {
	// Get configuration from environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Ensure data directories exist
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	// Initialize database
	database, err := db.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.CloseDB()

	// Initialize repositories
	projectRepo := repository.NewProjectRepository(database)
	assetRepo := repository.NewAssetRepository(database)

	// Initialize file storage
	fileStore, err := storage.NewLocalStore(cfg.UploadDir, "/uploads")
	if err != nil {
		log.Fatalf("Failed to initialize file storage: %v", err)
	}

	// Initialize the session synchronization core
	wsService := ws.NewService(assetRepo)
	defer wsService.Close()
	wsCore := ws.NewHandler(wsService)

	// Initialize handlers
	uploadLimiter := ratelimit.NewPerIP(cfg.UploadLimit, cfg.UploadWindow)
	projectHandler := handlers.NewProjectHandler(projectRepo, cfg.ProjectTTL)
	assetHandler := handlers.NewAssetHandler(assetRepo, projectRepo, fileStore, uploadLimiter, cfg.MaxUploadSize)
	wsHandler := handlers.NewWebSocketHandler(wsCore)

	// Initialize Gin router
	r := gin.Default()

	// Enable CORS for development
	r.Use(corsMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// Uploaded files are served statically
	r.Static("/uploads", fileStore.Dir())

	// API routes
	api := r.Group("/api")
	{
		projectHandler.RegisterRoutes(r, api)
		assetHandler.RegisterRoutes(r, api)
	}
	wsHandler.RegisterRoutes(r)

	// Periodically drop expired projects; asset rows cascade with them.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sweepExpired(sweepCtx, projectRepo, cfg.SweepInterval)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down server...")
		stopSweep()
		wsService.Close()
		db.CloseDB()
		os.Exit(0)
	}()

	// Start server
	log.Printf("Starting server on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// sweepExpired deletes expired projects on a fixed interval until the
// context is cancelled.
func sweepExpired(ctx context.Context, projects *repository.ProjectRepository, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := projects.DeleteExpired(ctx, time.Now())
			if err != nil {
				log.Printf("Failed to clean up expired projects: %v", err)
				continue
			}
			if deleted > 0 {
				log.Printf("Cleaned up %d expired projects", deleted)
			}
		}
	}
}

// corsMiddleware returns a CORS middleware for development.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

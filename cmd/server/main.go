package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mtgproxyprint/server/internal/api"
	"github.com/mtgproxyprint/server/internal/bulk"
	"github.com/mtgproxyprint/server/internal/database"
	"github.com/mtgproxyprint/server/internal/scryfall"
	"github.com/mtgproxyprint/server/internal/services"
)

func main() {
	// Database path
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./proxyprint.db"
	}

	// Initialize database
	if err := database.Initialize(dbPath); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Bulk card data directory
	dataDir := os.Getenv("SCRYFALL_DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}

	store, err := bulk.NewStore(bulk.Options{DataDir: dataDir})
	if err != nil {
		log.Fatalf("Failed to initialize bulk store: %v", err)
	}

	// Create a cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Download or load the card snapshot before accepting traffic
	log.Println("Loading card catalog...")
	if _, err := store.RefreshIfStale(ctx); err != nil {
		log.Fatalf("Failed to load card catalog: %v", err)
	}
	log.Printf("Card catalog ready: %d printings indexed", store.CardCount())

	client := scryfall.NewClient(scryfall.Options{})

	refreshInterval := 24 * time.Hour
	if intervalStr := os.Getenv("SCRYFALL_REFRESH_INTERVAL"); intervalStr != "" {
		if interval, err := time.ParseDuration(intervalStr); err == nil && interval > 0 {
			refreshInterval = interval
		} else {
			log.Printf("Ignoring invalid SCRYFALL_REFRESH_INTERVAL %q", intervalStr)
		}
	}

	resolver, err := services.NewResolver(store, client, services.ResolverOptions{
		RefreshInterval: refreshInterval,
	})
	if err != nil {
		log.Fatalf("Failed to initialize resolver: %v", err)
	}

	pipeline := services.NewPipeline(resolver, 0)
	statsService := services.NewStatsService(database.GetDB())

	// Keep the snapshot fresh in the background
	go resolver.StartAutoRefresh(ctx)

	// Setup router
	router := api.SetupRouter(pipeline, resolver, statsService, store)

	// Get port from environment
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Create HTTP server for graceful shutdown
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Stop the auto-refresh loop
	cancel()

	// Give outstanding requests a deadline to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

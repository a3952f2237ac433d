// Package main is the entry point for the Stay Match server.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/staymatch/backend/internal/api"
	"github.com/staymatch/backend/internal/booking"
	"github.com/staymatch/backend/internal/calendar"
	"github.com/staymatch/backend/internal/catalog"
	"github.com/staymatch/backend/internal/config"
	"github.com/staymatch/backend/internal/metrics"
	"github.com/staymatch/backend/internal/normalize"
	"github.com/staymatch/backend/internal/oracle"
	"github.com/staymatch/backend/internal/scoring"
	"github.com/staymatch/backend/internal/storage"
	"github.com/staymatch/backend/internal/websocket"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
// Defaults to "dev" when not provided.
var version = "dev"

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to a YAML config file")
	addr := flag.String("addr", "", "HTTP server address (overrides config)")
	dataDir := flag.String("data", "", "Data directory for SQLite database (overrides config)")
	staticDir := flag.String("static", "", "Directory for static frontend files (overrides config)")
	importPath := flag.String("import", "", "Replace the stored catalog with this JSON file before starting")
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dataDir != "" {
		cfg.Storage.DataDir = *dataDir
	}
	if *staticDir != "" {
		cfg.Server.StaticDir = *staticDir
	}

	// Health check mode for Docker HEALTHCHECK
	if *healthCheck {
		if err := runHealthCheck(cfg.Server.Addr); err != nil {
			log.Fatalf("Health check failed: %v", err)
		}
		os.Exit(0)
	}

	// Allow overriding version via environment
	if envVer := os.Getenv("VERSION"); envVer != "" {
		version = envVer
	}

	log.Printf("Starting Stay Match (version: %s)...", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data directory %q: %v", cfg.Storage.DataDir, err)
	}
	db, err := storage.NewDB(filepath.Join(cfg.Storage.DataDir, "staymatch.db"))
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := storage.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations complete")

	propertyRepo := storage.NewPropertyRepository(db)
	if *importPath != "" {
		properties, err := storage.ReadCatalogFile(*importPath)
		if err != nil {
			log.Fatalf("Failed to read catalog: %v", err)
		}
		if err := propertyRepo.SaveAll(ctx, properties); err != nil {
			log.Fatalf("Failed to import catalog: %v", err)
		}
		log.Printf("Imported %d properties from %s", len(properties), *importPath)
	}

	m := metrics.New()

	// Load the catalog into memory
	store := catalog.NewStore(propertyRepo)
	if err := store.Reload(ctx); err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}
	m.SetCatalogSize(store.Len())

	// Initialize WebSocket hub
	hub := websocket.NewHub()
	go hub.Run(ctx)
	events := websocket.NewEventBroadcaster(hub)

	// Initialize oracles
	termOracle, extractor, closeOracle := buildOracles(cfg, m)
	defer closeOracle()

	normalizer := normalize.New(store, termOracle, normalize.Options{
		AcceptThreshold: cfg.Matching.AcceptThreshold,
		LocationCutoff:  cfg.Matching.LocationCutoff,
		FuzzyCutoff:     cfg.Matching.FuzzyCutoff,
		ReferenceYear:   cfg.Matching.ReferenceYear,
	})

	// Initialize HTTP router with services
	router := api.NewRouter(api.Services{
		DB:         db,
		Hub:        hub,
		Events:     events,
		Catalog:    store,
		Normalizer: normalizer,
		Extractor:  extractor,
		Engine:     scoring.NewEngine(cfg.Matching.TopN),
		Booking:    booking.NewService(db, store, events, m),
		Parser:     calendar.NewParser(),
		Metrics:    m,
		StaticDir:  cfg.Server.StaticDir,
	})

	// Create HTTP server. Oracle calls may take up to the oracle timeout.
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Oracle.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	// Stop the hub
	cancel()

	log.Println("Server stopped")
}

// buildOracles assembles the oracle chain: the language model when an API key
// is configured, behind the local and remote answer caches, with metrics.
func buildOracles(cfg *config.Config, m *metrics.Metrics) (oracle.Oracle, oracle.Extractor, func()) {
	var base oracle.Oracle = oracle.Nop{}
	var extractor oracle.Extractor = oracle.Nop{}

	if cfg.Oracle.APIKey != "" {
		llm := oracle.NewOpenAIOracle(oracle.Config{
			APIKey:        cfg.Oracle.APIKey,
			BaseURL:       cfg.Oracle.BaseURL,
			Model:         cfg.Oracle.Model,
			Temperature:   cfg.Oracle.Temperature,
			Timeout:       cfg.Oracle.Timeout,
			RatePerSecond: cfg.Oracle.RatePerSecond,
			Burst:         cfg.Oracle.Burst,
		})
		base = oracle.Instrument(llm, m)
		extractor = oracle.InstrumentExtractor(llm, m)
		log.Println("Language model oracle enabled")
	} else {
		log.Println("No oracle API key configured, using local matching only")
	}

	var remote oracle.Cache
	switch {
	case cfg.Cache.RedisAddr != "":
		remote = oracle.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		log.Printf("Oracle cache backed by redis at %s", cfg.Cache.RedisAddr)
	case len(cfg.Cache.Memcache) > 0:
		remote = oracle.NewMemcacheCache(cfg.Cache.Memcache...)
		log.Printf("Oracle cache backed by memcached at %v", cfg.Cache.Memcache)
	}

	cached := oracle.NewCachedOracle(base, remote, cfg.Cache.TTL, int64(cfg.Cache.LocalEntries))
	closeFn := func() {
		cached.Stop()
		if c, ok := remote.(io.Closer); ok {
			if err := c.Close(); err != nil {
				log.Printf("Failed to close oracle cache: %v", err)
			}
		}
	}
	return cached, extractor, closeFn
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(addr string) error {
	url := "http://localhost" + addr + "/api/health"
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return http.ErrAbortHandler
	}
	return nil
}

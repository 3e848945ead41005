package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MLeehwa/lhswms/internal/barcode"
	"github.com/MLeehwa/lhswms/internal/config"
	"github.com/MLeehwa/lhswms/internal/database"
	"github.com/MLeehwa/lhswms/internal/handlers"
	"github.com/MLeehwa/lhswms/internal/inventory"
	"github.com/MLeehwa/lhswms/internal/models"
	"github.com/MLeehwa/lhswms/internal/recognize"
	"github.com/MLeehwa/lhswms/internal/recognize/gemini"
	"github.com/MLeehwa/lhswms/internal/recognize/tesseract"
	"github.com/MLeehwa/lhswms/internal/reconcile"
	"github.com/MLeehwa/lhswms/internal/store"
	"github.com/MLeehwa/lhswms/internal/websocket"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize database (Detects Embedded vs External automatically)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// Note: db.Close() is called manually in shutdown handler below

	// 3. Auto-Migrate Schema (Critical for Zero-Config)
	log.Println("🚀 Synchronizing database schema...")
	err = db.AutoMigrate(
		&models.UserAuth{},
		&models.OCRResult{},
		&models.Scan{},
		&models.ScanItem{},
		&models.InventoryRecord{},
	)
	if err != nil {
		log.Printf("⚠️ Migration warning: %v\n", err)
	} else {
		log.Println("✅ Schema synchronized successfully")
	}

	// 4. Pick the recognition engine
	var engine recognize.Engine
	var geminiEngine *gemini.Engine
	switch cfg.Recognize.Engine {
	case "gemini":
		geminiEngine, err = gemini.New(context.Background(), cfg.Recognize.GeminiAPIKey, cfg.Recognize.GeminiModel)
		if err != nil {
			log.Fatalf("Failed to init Gemini engine: %v", err)
		}
		engine = geminiEngine
	default:
		engine = tesseract.New()
	}
	log.Printf("🔍 Recognition engine: %s", engine.Name())

	extractor, err := barcode.NewExtractor(cfg.Reconcile.Prefixes, cfg.Reconcile.CodeLength)
	if err != nil {
		log.Fatalf("Failed to build code extractor: %v", err)
	}

	// 5. Wire the service layer
	st := store.New(db.DB)
	registry := reconcile.NewRegistry(st, reconcile.Options{
		Prefixes:            cfg.Reconcile.Prefixes,
		CodeLength:          cfg.Reconcile.CodeLength,
		SimilarityThreshold: cfg.Reconcile.SimilarityThreshold,
		TopN:                cfg.Reconcile.TopN,
	})
	inv := inventory.NewService(st, cfg.Reconcile.Prefixes)

	hub := websocket.NewHub()
	go hub.Run()

	// Background flush of writes that failed their optimistic attempt
	flushCtx, stopFlush := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(cfg.Reconcile.FlushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-flushCtx.Done():
				return
			case <-ticker.C:
				if remaining := registry.FlushAll(flushCtx); remaining > 0 {
					log.Printf("⚠️ %d writes still pending after flush", remaining)
				}
			}
		}
	}()

	// 6. Set up HTTP router
	router := handlers.NewRouter(cfg, db, st, registry, inv, engine, extractor, hub)

	// 7. Start server with graceful shutdown
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		log.Printf("🚀 Server starting on port %s [prefixes: %v, code length: %d]\n",
			cfg.Port, cfg.Reconcile.Prefixes, cfg.Reconcile.CodeLength)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	sig := <-shutdown
	log.Printf("\n⚠️  Received signal: %v. Shutting down gracefully...\n", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	stopFlush()

	// Last chance for queued writes before the process dies
	if remaining := registry.FlushAll(context.Background()); remaining > 0 {
		log.Printf("⚠️ %d writes could not be persisted before shutdown", remaining)
	}

	if geminiEngine != nil {
		geminiEngine.Close()
	}

	// Close database (this also stops embedded PostgreSQL)
	log.Println("🛑 Closing database connection...")
	if err := db.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}

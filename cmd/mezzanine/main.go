package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mezzanine/internal/common/config"
	"mezzanine/internal/common/middleware"
	"mezzanine/internal/document/repository"
	"mezzanine/internal/mezzanine/pipeline"
	"mezzanine/internal/session/handlers"
	"mezzanine/internal/session/service"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// ============================================================
// Mezzanine Service
// ============================================================

func main() {
	cfg := config.Load()

	db, err := repository.OpenSQLite(cfg.DocumentDBPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	doc := repository.New(db)
	if err := doc.Init(context.Background(), cfg.DocumentSeedPath); err != nil {
		log.Fatalf("init db: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	idle := time.Duration(cfg.SessionIdleTimeout) * time.Second
	sessions := service.NewManager(doc, pipeline.Config{
		DefaultHeightOffsetMM: cfg.DefaultHeightOffsetMM,
		DefaultWallHeightMM:   cfg.DefaultWallHeightMM,
		Tolerance:             cfg.PointTolerance,
	}, idle)
	if idle > 0 {
		go sessions.RunSweeper(ctx, idle/4)
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "Mezzanine Service",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS(cfg.CORSOrigins))

	// ============================================================
	// Health Check Routes
	// ============================================================

	app.Get("/health/live", handlers.LivenessProbe)
	app.Get("/health/ready", handlers.ReadinessProbe(db))

	// ============================================================
	// Session & Scene Routes
	// ============================================================

	handlers.Register(app,
		handlers.NewSessionHandler(sessions),
		handlers.NewSceneHandler(doc),
	)

	// ============================================================
	// Server Start
	// ============================================================

	go func() {
		<-ctx.Done()
		log.Printf("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sessions.Shutdown(shutdownCtx); err != nil {
			log.Printf("[SESSION] shutdown: %v", err)
		}
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting Mezzanine Service on %s (env: %s)", addr, cfg.Environment)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"inspection/api/internal/app"
	"inspection/api/internal/blob"
	"inspection/api/internal/config"
	"inspection/api/internal/export"
	"inspection/api/internal/gitrepo"
	"inspection/api/internal/search"
	"inspection/api/internal/sheet"
	"inspection/api/internal/slot"
	"inspection/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.OpenWithRetry(ctx, cfg.DatabaseURL, cfg.DBAttempts, 2*time.Second)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	migrations, err := store.Migrations(cfg.MigrationsDir)
	if err != nil {
		log.Fatalf("migrations unavailable: %v", err)
	}
	if err := store.ApplyMigrations(ctx, db, migrations); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	if err := os.MkdirAll(cfg.ReposDir, 0o755); err != nil {
		log.Fatalf("failed to create repos dir: %v", err)
	}

	catalog, err := sheet.LoadCatalog(cfg.TemplatesDir)
	if err != nil {
		log.Fatalf("templates failed: %v", err)
	}

	slots, err := openSlots(cfg)
	if err != nil {
		log.Fatalf("slot store failed: %v", err)
	}
	defer slots.Close()

	dataStore := store.NewPostgresStore(db)
	gitService := gitrepo.New(cfg.ReposDir)
	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
	}
	searchService := search.NewService(meiliClient, pgfts)
	if meiliClient != nil {
		defer meiliClient.Close()
		go searchService.ReindexAllFromPG(ctx)
	}

	var blobs blob.Store
	if strings.TrimSpace(cfg.MinIOEndpoint) != "" {
		minioStore, err := blob.NewMinIO(ctx, blob.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
			PublicURL: cfg.MinIOPublicURL,
		})
		if err != nil {
			log.Printf("WARNING: export uploads disabled: %v", err)
		} else {
			log.Printf("Uploading exports to bucket %s", cfg.MinIOBucket)
			blobs = minioStore
		}
	}

	service := app.New(cfg, app.Deps{
		Catalog:  catalog,
		Slots:    slots,
		Store:    dataStore,
		Git:      gitService,
		Search:   searchService,
		Exporter: export.NewService(),
		Blobs:    blobs,
	})

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Inspection API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	service.Close()
}

func openSlots(cfg config.Config) (slot.Store, error) {
	switch cfg.SlotBackend {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, err
		}
		log.Printf("Using SQLite at %s for local sheet slots", cfg.SQLitePath)
		return slot.NewSQLiteStore(cfg.SQLitePath)
	default:
		log.Printf("Using Redis for local sheet slots")
		return slot.NewRedisStore(cfg.RedisURL)
	}
}

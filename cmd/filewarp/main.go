package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/filewarp/filewarp/internal/api"
	"github.com/filewarp/filewarp/internal/cleanup"
	"github.com/filewarp/filewarp/internal/config"
	"github.com/filewarp/filewarp/internal/convert"
	"github.com/filewarp/filewarp/internal/format"
	"github.com/filewarp/filewarp/internal/history"
	"github.com/filewarp/filewarp/internal/janitor"
	"github.com/filewarp/filewarp/internal/pipeline"
	"github.com/filewarp/filewarp/internal/sysdeps"
)

func main() {
	cfg := config.Load()
	log.Printf("starting filewarp on port %d, uploads=%s, output=%s, env=%s",
		cfg.HTTPPort, cfg.UploadDir, cfg.OutputDir, cfg.Env)

	if err := cfg.EnsureDirs(); err != nil {
		log.Fatalf("failed to create directories: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Fail fast: never accept requests the converters cannot fulfill.
	if err := sysdeps.Gate(ctx, cfg); err != nil {
		log.Printf("make sure FFmpeg and LibreOffice are installed and on PATH")
		log.Fatalf("dependency check failed: %v", err)
	}

	catalog := format.NewCatalog()

	progressLog := func(stage string, percent float64, detail string) {
		switch stage {
		case "progress":
			log.Printf("media conversion: %.0f%% complete", percent)
		case "start":
			log.Printf("media conversion started: %s", detail)
		case "error":
			log.Printf("media conversion error: %s", detail)
		case "done":
			log.Printf("media conversion completed")
		}
	}

	registry := convert.NewRegistry(catalog,
		convert.NewImageAdapter(catalog, cfg.MagickPath),
		convert.NewMediaAdapter(catalog, cfg.FFmpegPath, cfg.FFprobePath, progressLog),
		convert.NewDocumentAdapter(catalog, cfg.UnoconvPath, cfg.SofficePath),
	)
	if err := registry.Validate(); err != nil {
		log.Fatalf("converter registry incomplete: %v", err)
	}

	store, err := history.Open(cfg.HistoryDBPath)
	if err != nil {
		log.Fatalf("failed to open history db: %v", err)
	}
	defer store.Close()

	cleaner := cleanup.New(cfg.CleanupRetries, cfg.CleanupRetryDelay)
	orch := pipeline.New(catalog, registry, cleaner, store, cfg.OutputDir, cfg.ConvertTimeout)

	jan, err := janitor.New(cfg.OutputDir, cfg.OutputTTL, cfg.SweepInterval, cleaner)
	if err != nil {
		log.Fatalf("failed to create janitor: %v", err)
	}
	defer jan.Close()
	go func() {
		if err := jan.Start(ctx); err != nil {
			log.Printf("janitor error: %v", err)
		}
	}()

	server := api.NewServer(cfg, catalog, orch, store)
	httpSrv := &http.Server{Addr: cfg.HTTPAddr(), Handler: server.Router}
	go func() {
		log.Printf("http server listening on %s", cfg.HTTPAddr())
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("received signal %s, shutting down...", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	log.Printf("shutdown complete")
}

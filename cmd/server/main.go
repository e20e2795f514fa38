package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"pdf-ocr-service/internal/api"
	"pdf-ocr-service/internal/config"
	"pdf-ocr-service/internal/ocr"
	"pdf-ocr-service/internal/pdf"
	"pdf-ocr-service/internal/services"
	"pdf-ocr-service/internal/store"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize the task store
	taskStore, err := store.New(cfg.Store.ResultsDir)
	if err != nil {
		log.Fatalf("Failed to initialize task store: %v", err)
	}

	// Initialize pipeline stages. Backends are lazy: nothing heavy loads
	// until a task actually selects it.
	registry := ocr.NewRegistry(cfg.OCR, cfg.Vision)
	pipeline := services.NewPipeline(
		pdf.NewClassifier(cfg.OCR.MinTextualChars),
		pdf.NewExtractor(),
		pdf.NewRasterizer(cfg.OCR.PdftoppmPath, cfg.OCR.RasterDPI),
		registry,
		taskStore,
	)

	// Start the background worker pool
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	manager := services.NewManager(pipeline, taskStore, cfg.Worker.QueueSize)
	manager.StartWorkers(ctx, cfg.Worker.Count)
	log.Printf("Started %d worker(s), queue size %d", cfg.Worker.Count, cfg.Worker.QueueSize)

	// Setup router
	handlers := api.NewHandlers(cfg, taskStore, manager, pipeline, registry)
	router := api.SetupRoutes(handlers, "templates/*.html", "static")

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Shutting down gracefully...")
		cancel()
		manager.Wait()
		os.Exit(0)
	}()

	// Start server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Starting server on %s (results dir: %s, default backend: %s)",
		addr, cfg.Store.ResultsDir, cfg.OCR.DefaultBackend)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

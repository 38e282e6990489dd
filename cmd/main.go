/*
Package main is the entry point for the ChatSync Server.

It is responsible for loading configuration, initializing the global logging
system, wiring the store and upload storage backends, starting the chat Hub
and the HTTP server, and gracefully handling operating system interrupt
signals (SIGINT, SIGTERM) to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatsync/internal/app/chat"
	"chatsync/internal/app/storage"
	"chatsync/internal/app/store"
	"chatsync/internal/configs"
	"chatsync/internal/handler"
	"chatsync/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Int("retention_cap", cfg.RetentionCap).
		Str("default_room", cfg.DefaultRoom).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Select the document backend: Postgres when a DSN is configured, the
	// local JSON file otherwise.
	var backend store.Backend
	if cfg.DatabaseDSN != "" {
		pgBackend, err := store.NewPgBackend(cfg.DatabaseDSN)
		if err != nil {
			logx.Fatal(err, "Failed to initialize Postgres store backend")
		}
		defer pgBackend.Close()
		backend = pgBackend
		logx.Info("Using Postgres store backend")
	} else {
		fileBackend, err := store.NewFileBackend(cfg.DataFile)
		if err != nil {
			logx.Fatal(err, "Failed to initialize file store backend")
		}
		backend = fileBackend
		logx.Info("Using file store backend", "data_file", cfg.DataFile)
	}

	st, err := store.New(ctx, backend, cfg.RetentionCap, cfg.DefaultRoom)
	if err != nil {
		logx.Fatal(err, "Failed to initialize store")
	}

	// Upload storage: S3-compatible when a bucket is configured, local disk otherwise.
	storageService, err := storage.NewService(storage.ServiceConfig{
		UploadDir:         cfg.UploadDir,
		S3BucketName:      cfg.S3BucketName,
		S3Endpoint:        cfg.S3Endpoint,
		S3AccessKeyID:     cfg.S3AccessKeyID,
		S3SecretAccessKey: cfg.S3SecretAccessKey,
	})
	if err != nil {
		logx.Fatal(err, "Failed to initialize upload storage")
	}

	// Initialize the chat Hub
	hub := chat.NewHub(st)

	// Setup HTTP server and routes
	router := handler.Router(&handler.AppDeps{
		Hub:     hub,
		Store:   st,
		Storage: storageService,
		Config:  cfg,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("ChatSync Server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	hub.Shutdown()

	logx.Info("Server gracefully stopped.")
}

// Package main provides the entry point for the Veo bridge API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adrianmolina/veo-bridge/internal/bridge"
	"github.com/adrianmolina/veo-bridge/internal/config"
	"github.com/adrianmolina/veo-bridge/internal/gcpauth"
	"github.com/adrianmolina/veo-bridge/internal/server"
	"github.com/adrianmolina/veo-bridge/internal/storage"
	"github.com/adrianmolina/veo-bridge/internal/veo"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Create structured logger
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting Veo bridge API",
		slog.Int("port", cfg.Port),
		slog.String("log_format", cfg.LogFormat),
		slog.String("log_level", cfg.LogLevel),
		slog.String("generator", cfg.Generator),
		slog.Bool("gcs_enabled", cfg.GCSEnabled()),
		slog.Bool("s3_enabled", cfg.S3Enabled()),
	)

	// Decode the service-account key once, at startup
	key, err := gcpauth.ParseServiceAccountKey(cfg.GoogleServiceAccountKey)
	if err != nil {
		return fmt.Errorf("parse service account key: %w", err)
	}

	// Initialize the storage backend; nil means inline data-URL delivery
	var uploader storage.Uploader
	if cfg.GCSEnabled() {
		gcs, err := storage.NewGCSUploader(cfg.GCSBucket)
		if err != nil {
			return fmt.Errorf("create GCS uploader: %w", err)
		}
		uploader = gcs
		logger.Info("GCS storage configured",
			slog.String("bucket", cfg.GCSBucket),
		)
	} else if cfg.S3Enabled() {
		s3Up, err := storage.NewS3Uploader(storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return fmt.Errorf("create S3 uploader: %w", err)
		}
		uploader = s3Up
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
	} else {
		logger.Info("no object storage configured, videos will be returned inline")
	}

	// Initialize the poll pipeline
	persister := storage.NewPersister(uploader, cfg.Generator, logger)
	exchanger := gcpauth.NewExchanger()
	pollClient := veo.NewHTTPClient()
	svc := bridge.NewService(key, exchanger, pollClient, persister, logger)

	// Initialize HTTP handlers and router
	handlers := server.NewHandlers(svc, logger)
	router := server.NewRouter(handlers, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // Responses may carry a full inline video
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening",
			slog.String("addr", srv.Addr),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-shutdownCh:
		logger.Info("received shutdown signal",
			slog.String("signal", sig.String()),
		)
	case err := <-errCh:
		return err
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("shutting down server...")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}

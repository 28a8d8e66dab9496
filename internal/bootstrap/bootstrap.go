// Package bootstrap provides dependency initialization for the Veo bridge API.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/adrianmolina/veo-bridge/internal/bridge"
	"github.com/adrianmolina/veo-bridge/internal/config"
	"github.com/adrianmolina/veo-bridge/internal/gcpauth"
	"github.com/adrianmolina/veo-bridge/internal/storage"
	"github.com/adrianmolina/veo-bridge/internal/veo"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	BridgeService *bridge.Service
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	// Decoding the key here makes a malformed key a startup failure instead
	// of a per-request one.
	key, err := gcpauth.ParseServiceAccountKey(cfg.GoogleServiceAccountKey)
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}

	uploader, err := initUploader(cfg, logger)
	if err != nil {
		return nil, err
	}

	persister := storage.NewPersister(uploader, cfg.Generator, logger)
	exchanger := gcpauth.NewExchanger()
	pollClient := veo.NewHTTPClient()

	svc := bridge.NewService(key, exchanger, pollClient, persister, logger)

	return &Dependencies{
		BridgeService: svc,
	}, nil
}

// initUploader creates the storage backend based on configuration. A nil
// uploader is valid and means every artifact is returned inline.
func initUploader(cfg *config.Config, logger *slog.Logger) (storage.Uploader, error) {
	if cfg.GCSEnabled() {
		gcs, err := storage.NewGCSUploader(cfg.GCSBucket)
		if err != nil {
			return nil, fmt.Errorf("create GCS uploader: %w", err)
		}
		logger.Info("GCS storage configured",
			slog.String("bucket", cfg.GCSBucket),
		)
		return gcs, nil
	}

	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Up, err := storage.NewS3Uploader(s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 uploader: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Up, nil
	}

	logger.Info("no object storage configured, videos will be returned inline")
	return nil, nil
}

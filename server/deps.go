package server

import (
	"context"
	"errors"
	"fmt"
	"github.com/rs/zerolog"
	"media-registry/config"
	"media-registry/constant"
	"media-registry/repository"
	"media-registry/storage"
)

// dependencies are the process-wide stores, built once at startup and closed
// explicitly on shutdown.
type dependencies struct {
	blobs storage.BlobStore
	repo  repository.RecordingRepository
}

func newDependencies(ctx context.Context, cfg *config.Config) (*dependencies, error) {
	blobs, err := newBlobStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	db, err := repository.Open(cfg.Database, cfg.App.Environment == constant.EnvironmentDevelop.String())
	if err != nil {
		return nil, err
	}
	repo := repository.NewRepo(db)
	if err := repo.Migrate(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("migrate recordings table: %w", err), repo.Close())
	}

	zerolog.Ctx(ctx).Info().
		Str("blob_backend", cfg.Storage.Backend).
		Str("database_driver", cfg.Database.Driver).
		Msg("stores ready")

	return &dependencies{blobs: blobs, repo: repo}, nil
}

func (d *dependencies) Close(ctx context.Context) {
	if err := d.repo.Close(); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to close metadata store")
	}
}

func newBlobStore(ctx context.Context, cfg config.Storage) (storage.BlobStore, error) {
	switch constant.BlobBackend(cfg.Backend) {
	case constant.BlobBackendLocal:
		return storage.NewLocalStore(cfg.Local.Dir)
	case constant.BlobBackendMinio:
		client, err := storage.NewMinioClient(cfg.Minio.URL, cfg.Minio.AccessID, cfg.Minio.SecretAccessKey, cfg.Minio.Secure)
		if err != nil {
			return nil, err
		}
		return storage.NewMinioStore(client, cfg.Minio.Bucket, cfg.Minio.Prefix), nil
	case constant.BlobBackendS3:
		client, err := storage.NewS3Client(ctx, cfg.S3.Region, cfg.S3.Endpoint, cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey)
		if err != nil {
			return nil, err
		}
		return storage.NewS3Store(client, cfg.S3.Bucket, cfg.S3.Prefix), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}

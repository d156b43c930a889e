// Package storage provides an object storage abstraction used to upload an evaluated
// context's exported DAG graph (Component J's dag.json/pro.json) to a durable target,
// local disk by default or Tencent COS when configured.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/mpengine/mpcore/pkg/mpconfig"
	"github.com/mpengine/mpcore/pkg/mperrors"
)

// Storage defines the interface for object storage operations.
type Storage interface {
	// Upload uploads data from reader to the specified key.
	Upload(ctx context.Context, key string, reader io.Reader) error

	// UploadFile uploads a local file to the specified key.
	UploadFile(ctx context.Context, key string, localPath string) error

	// Download downloads data from the specified key.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// DownloadFile downloads data from the specified key to a local file.
	DownloadFile(ctx context.Context, key string, localPath string) error

	// Delete deletes the object at the specified key.
	Delete(ctx context.Context, key string) error

	// Exists checks if an object exists at the specified key.
	Exists(ctx context.Context, key string) (bool, error)

	// GetURL returns the URL for the specified key (if applicable).
	GetURL(key string) string
}

// StorageType represents the type of storage backend.
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeCOS   StorageType = "cos"
)

// NewStorage creates a new Storage instance based on the configuration. Any type other
// than "cos" gets local storage.
func NewStorage(cfg *mpconfig.StorageConfig) (Storage, error) {
	if cfg != nil && StorageType(cfg.Type) != StorageTypeCOS && StorageType(cfg.Type) != StorageTypeLocal {
		fallback := *cfg
		fallback.Type = string(StorageTypeLocal)
		cfg = &fallback
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	switch StorageType(cfg.Type) {
	case StorageTypeLocal:
		return NewLocalStorage(cfg.LocalPath)
	case StorageTypeCOS:
		return NewCOSStorage(&COSConfig{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
			Domain:    cfg.Domain,
			Scheme:    cfg.Scheme,
		})
	default:
		return NewLocalStorage(cfg.LocalPath)
	}
}

// ValidateConfig validates the storage configuration.
func ValidateConfig(cfg *mpconfig.StorageConfig) error {
	if cfg == nil {
		return mperrors.New(mperrors.ConfigError, "storage config is nil")
	}

	storageType := StorageType(cfg.Type)

	// Empty type defaults to local
	if storageType == "" {
		storageType = StorageTypeLocal
	}

	if storageType != StorageTypeCOS && storageType != StorageTypeLocal {
		return mperrors.New(mperrors.ConfigError, fmt.Sprintf("unsupported storage type: %s", cfg.Type))
	}

	if storageType == StorageTypeCOS {
		if cfg.Bucket == "" {
			return mperrors.New(mperrors.ConfigError, "COS bucket is required")
		}
		if cfg.Region == "" {
			return mperrors.New(mperrors.ConfigError, "COS region is required")
		}
		if cfg.SecretID == "" || cfg.SecretKey == "" {
			return mperrors.New(mperrors.ConfigError, "COS credentials are required")
		}
	}

	if storageType == StorageTypeLocal {
		if cfg.LocalPath == "" {
			return mperrors.New(mperrors.ConfigError, "local storage path is required")
		}
	}

	return nil
}

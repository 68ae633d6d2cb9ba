package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when an object does not exist
	ErrNotFound = errors.New("object not found")
	// ErrInvalidKey is returned for keys that would escape the storage root
	ErrInvalidKey = errors.New("invalid object key")
)

// Storage interface for corpus export artifacts
type Storage interface {
	// Put stores an object under key and returns its location
	Put(ctx context.Context, key string, data io.Reader, contentType string) (string, error)

	// Get retrieves an object by key
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes an object by key
	Delete(ctx context.Context, key string) error
}

// StorageType represents the storage backend type
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
)

// StorageConfig holds configuration for storage
type StorageConfig struct {
	Type         StorageType
	LocalPath    string // For local storage
	S3Bucket     string // For S3 storage
	S3Region     string // For S3 storage
	AWSAccessKey string
	AWSSecretKey string
}

// NewStorage creates a new storage instance based on configuration
func NewStorage(cfg StorageConfig) (Storage, error) {
	switch cfg.Type {
	case StorageTypeLocal, "":
		if cfg.LocalPath == "" {
			cfg.LocalPath = "./storage/files"
		}
		return NewLocalStorage(cfg.LocalPath)
	case StorageTypeS3:
		if cfg.S3Bucket == "" {
			return nil, errors.New("AWS_S3_BUCKET is required for S3 storage")
		}
		if cfg.S3Region == "" {
			cfg.S3Region = "us-east-1"
		}
		return NewS3Storage(cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// ExportKey returns the object key of a tree export taken at t. Keys sort
// chronologically.
func ExportKey(t time.Time) string {
	return path.Join("exports", t.UTC().Format("20060102"), "law_tree_"+t.UTC().Format("150405")+".json")
}

// cleanKey normalizes key and rejects anything absolute or escaping the root.
func cleanKey(key string) (string, error) {
	key = strings.ReplaceAll(key, "\\", "/")
	if key == "" || strings.HasPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

// getContentType determines content type from the key's extension
func getContentType(key string) string {
	switch path.Ext(key) {
	case ".json":
		return "application/json"
	case ".txt", ".md":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

package state

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/warp-contracts/ambassador-syncer/src/utils/config"
)

var (
	ErrKeyNotFound = errors.New("key not found")
	ErrInvalidKey  = errors.New("invalid key")
)

// Key/value persistence of exported stores and blobs
type Storage interface {
	// ErrKeyNotFound if nothing is stored under the key
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Creates the storage selected in the config and connects it
func NewStorage(ctx context.Context, config *config.Config) (Storage, error) {
	switch config.Storage.Type {
	case "file":
		return NewFileStorage(&config.Storage)
	case "memory":
		return NewMemoryStorage(), nil
	case "redis":
		return NewRedisStorage(ctx, config)
	case "postgres":
		return NewPostgresStorage(ctx, config)
	}
	return nil, fmt.Errorf("unknown storage type %q", config.Storage.Type)
}

// Keys end up in file names and shared namespaces
func validateKey(key string) error {
	if key == "" || len(key) > 128 || strings.ContainsAny(key, "/\\\x00") || key == "." || key == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

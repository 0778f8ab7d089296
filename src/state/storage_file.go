package state

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/warp-contracts/ambassador-syncer/src/utils/config"
)

// One file per key
type FileStorage struct {
	config *config.Storage
}

func NewFileStorage(config *config.Storage) (self *FileStorage, err error) {
	err = os.MkdirAll(config.Dir, 0o750)
	if err != nil {
		return
	}
	return &FileStorage{config: config}, nil
}

func (self *FileStorage) path(key string) (string, error) {
	err := validateKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(self.config.Dir, self.config.KeyPrefix+key), nil
}

func (self *FileStorage) Get(ctx context.Context, key string) (out []byte, err error) {
	path, err := self.path(key)
	if err != nil {
		return
	}

	/* #nosec */
	out, err = os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrKeyNotFound
	}
	return
}

// Readers never see a partially written value
func (self *FileStorage) Set(ctx context.Context, key string, value []byte) (err error) {
	path, err := self.path(key)
	if err != nil {
		return
	}

	f, err := os.CreateTemp(self.config.Dir, ".tmp-*")
	if err != nil {
		return
	}
	defer os.Remove(f.Name())

	_, err = f.Write(value)
	if err != nil {
		_ = f.Close()
		return
	}

	err = f.Close()
	if err != nil {
		return
	}

	return os.Rename(f.Name(), path)
}

func (self *FileStorage) Delete(ctx context.Context, key string) (err error) {
	path, err := self.path(key)
	if err != nil {
		return
	}

	err = os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return
}

func (self *FileStorage) Close() error {
	return nil
}

package state

import (
	"context"

	"github.com/patrickmn/go-cache"
)

// Values live as long as the process
type MemoryStorage struct {
	values *cache.Cache
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: cache.New(cache.NoExpiration, 0)}
}

func (self *MemoryStorage) Get(ctx context.Context, key string) ([]byte, error) {
	value, ok := self.values.Get(key)
	if !ok {
		return nil, ErrKeyNotFound
	}

	// Callers may modify the returned slice
	stored := value.([]byte)
	out := make([]byte, len(stored))
	copy(out, stored)
	return out, nil
}

func (self *MemoryStorage) Set(ctx context.Context, key string, value []byte) error {
	err := validateKey(key)
	if err != nil {
		return err
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	self.values.Set(key, stored, cache.NoExpiration)
	return nil
}

func (self *MemoryStorage) Delete(ctx context.Context, key string) error {
	self.values.Delete(key)
	return nil
}

func (self *MemoryStorage) Close() error {
	self.values.Flush()
	return nil
}

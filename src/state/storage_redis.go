package state

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/warp-contracts/ambassador-syncer/src/utils/config"
	"github.com/warp-contracts/ambassador-syncer/src/utils/logger"
	"github.com/warp-contracts/ambassador-syncer/src/utils/task"
)

// Values stored as plain redis strings under a common prefix
type RedisStorage struct {
	client *redis.Client
	prefix string
	log    *logrus.Entry
}

func NewRedisStorage(ctx context.Context, config *config.Config) (self *RedisStorage, err error) {
	self = new(RedisStorage)
	self.prefix = config.Storage.KeyPrefix
	self.log = logger.NewSublogger("redis-storage")

	opts := redis.Options{
		ClientName:      "ambassador-syncer",
		Addr:            fmt.Sprintf("%s:%d", config.Redis.Host, config.Redis.Port),
		Password:        config.Redis.Password,
		Username:        config.Redis.User,
		DB:              config.Redis.DB,
		MinIdleConns:    config.Redis.MinIdleConns,
		MaxIdleConns:    config.Redis.MaxIdleConns,
		ConnMaxIdleTime: config.Redis.ConnMaxIdleTime,
		PoolSize:        config.Redis.MaxOpenConns,
		ConnMaxLifetime: config.Redis.ConnMaxLifetime,
	}

	if config.Redis.ClientCert != "" && config.Redis.ClientKey != "" && config.Redis.CaCert != "" {
		cert, err := tls.X509KeyPair([]byte(config.Redis.ClientCert), []byte(config.Redis.ClientKey))
		if err != nil {
			return nil, fmt.Errorf("failed to load client cert: %w", err)
		}

		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM([]byte(config.Redis.CaCert)) {
			return nil, errors.New("failed to append CA cert to pool")
		}

		opts.TLSConfig = &tls.Config{
			MinVersion:   tls.VersionTLS12,
			RootCAs:      caCertPool,
			Certificates: []tls.Certificate{cert},
		}
	}

	self.client = redis.NewClient(&opts)

	err = task.NewRetry().
		WithContext(ctx).
		WithMaxElapsedTime(config.Storage.ConnectTimeout).
		WithMaxInterval(5 * time.Second).
		WithOnError(func(err error, d time.Duration) {
			self.log.WithError(err).WithField("retry_in", d).Warn("Failed to ping Redis, retrying")
		}).
		Run(func() error {
			return self.client.Ping(ctx).Err()
		})
	if err != nil {
		_ = self.client.Close()
		return nil, err
	}

	return
}

func (self *RedisStorage) Get(ctx context.Context, key string) (out []byte, err error) {
	out, err = self.client.Get(ctx, self.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	return
}

func (self *RedisStorage) Set(ctx context.Context, key string, value []byte) (err error) {
	err = validateKey(key)
	if err != nil {
		return
	}
	return self.client.Set(ctx, self.prefix+key, value, 0).Err()
}

func (self *RedisStorage) Delete(ctx context.Context, key string) error {
	return self.client.Del(ctx, self.prefix+key).Err()
}

func (self *RedisStorage) Close() error {
	return self.client.Close()
}

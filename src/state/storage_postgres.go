package state

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp-contracts/ambassador-syncer/src/utils/config"
	"github.com/warp-contracts/ambassador-syncer/src/utils/logger"
	"github.com/warp-contracts/ambassador-syncer/src/utils/model"
	"github.com/warp-contracts/ambassador-syncer/src/utils/task"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Values stored in the kv_store table
type PostgresStorage struct {
	db     *gorm.DB
	prefix string
	log    *logrus.Entry
}

func NewPostgresStorage(ctx context.Context, config *config.Config) (self *PostgresStorage, err error) {
	self = new(PostgresStorage)
	self.prefix = config.Storage.KeyPrefix
	self.log = logger.NewSublogger("postgres-storage")

	err = task.NewRetry().
		WithContext(ctx).
		WithMaxElapsedTime(config.Storage.ConnectTimeout).
		WithMaxInterval(5 * time.Second).
		WithOnError(func(err error, d time.Duration) {
			self.log.WithError(err).WithField("retry_in", d).Warn("Failed to connect to the database, retrying")
		}).
		Run(func() (err error) {
			self.db, err = model.NewConnection(ctx, config, "storage")
			return
		})
	if err != nil {
		return nil, err
	}

	return
}

func (self *PostgresStorage) Get(ctx context.Context, key string) (out []byte, err error) {
	var kv model.KeyValue
	err = self.db.WithContext(ctx).
		Where("key = ?", self.prefix+key).
		First(&kv).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return
	}
	return kv.Value, nil
}

func (self *PostgresStorage) Set(ctx context.Context, key string, value []byte) (err error) {
	err = validateKey(key)
	if err != nil {
		return
	}

	return self.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&model.KeyValue{Key: self.prefix + key, Value: value, UpdatedAt: time.Now()}).
		Error
}

func (self *PostgresStorage) Delete(ctx context.Context, key string) error {
	return self.db.WithContext(ctx).
		Where("key = ?", self.prefix+key).
		Delete(&model.KeyValue{}).
		Error
}

func (self *PostgresStorage) Close() error {
	db, err := self.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

package cache

import (
	"bytes"
	"errors"
	"net/http"
	"os"
	"sync"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/sirupsen/logrus"
	"github.com/warp-contracts/ambassador-syncer/src/cache/sql_migrations"
	"github.com/warp-contracts/ambassador-syncer/src/utils/config"
	"github.com/warp-contracts/ambassador-syncer/src/utils/datum"
	"github.com/warp-contracts/ambassador-syncer/src/utils/logger"
	"github.com/warp-contracts/ambassador-syncer/src/utils/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var (
	ErrNotLoaded    = errors.New("store is not loaded")
	ErrInvalidImage = errors.New("invalid store image")
)

// Every SQLite database file starts with this
var sqliteHeader = []byte("SQLite format 3\x00")

// Embedded relational store holding cached records.
// It starts unloaded, Init or Load makes it usable.
type Store struct {
	config *config.Cache
	log    *logrus.Entry

	mtx  sync.RWMutex
	db   *gorm.DB
	path string
}

func NewStore(config *config.Cache) (self *Store) {
	self = new(Store)
	self.config = config
	self.log = logger.NewSublogger("cache-store")
	return
}

// Replaces the current database with an empty one
func (self *Store) Init() (err error) {
	path, err := self.tempPath()
	if err != nil {
		return
	}

	db, err := self.open(path)
	if err != nil {
		_ = os.Remove(path)
		return
	}

	self.swap(db, path)
	return
}

// Replaces the current database with the image. Never merges.
func (self *Store) Load(image []byte) (err error) {
	if !bytes.HasPrefix(image, sqliteHeader) {
		return ErrInvalidImage
	}

	path, err := self.tempPath()
	if err != nil {
		return
	}

	err = os.WriteFile(path, image, 0600)
	if err != nil {
		_ = os.Remove(path)
		return
	}

	db, err := self.open(path)
	if err != nil {
		_ = os.Remove(path)
		self.log.WithError(err).Warn("Failed to open store image")
		return errors.Join(ErrInvalidImage, err)
	}

	self.swap(db, path)
	return
}

func (self *Store) IsLoaded() bool {
	self.mtx.RLock()
	defer self.mtx.RUnlock()
	return self.db != nil
}

// Runs a query with bound parameters, rows are returned as column name -> value maps
func (self *Store) Query(sql string, params ...any) (out []map[string]any, err error) {
	self.mtx.RLock()
	defer self.mtx.RUnlock()

	if self.db == nil {
		return nil, ErrNotLoaded
	}

	out = make([]map[string]any, 0)
	err = self.db.Raw(sql, params...).Scan(&out).Error
	return
}

// Serializes the whole database
func (self *Store) Export() (out []byte, err error) {
	self.mtx.RLock()
	defer self.mtx.RUnlock()

	if self.db == nil {
		return nil, ErrNotLoaded
	}

	// VACUUM INTO refuses to overwrite files
	target, err := self.tempPath()
	if err != nil {
		return
	}
	err = os.Remove(target)
	if err != nil {
		return
	}
	defer os.Remove(target)

	err = self.db.Exec("VACUUM INTO ?", target).Error
	if err != nil {
		return
	}

	return os.ReadFile(target)
}

// Bulk insert. Member records also get a denormalized profile row.
func (self *Store) InsertRecords(records []*model.CachedRecord) (err error) {
	if len(records) == 0 {
		return
	}

	self.mtx.RLock()
	defer self.mtx.RUnlock()

	if self.db == nil {
		return ErrNotLoaded
	}

	// Ids are assigned by the database
	rows := make([]*model.CachedRecord, 0, len(records))
	profiles := make([]*model.AmbassadorProfile, 0)
	for _, record := range records {
		row := *record
		row.Id = 0
		rows = append(rows, &row)

		if profile := toProfile(&row); profile != nil {
			profiles = append(profiles, profile)
		}
	}

	return self.db.Transaction(func(tx *gorm.DB) (err error) {
		if self.config.Upsert {
			for _, row := range rows {
				err = tx.Where("tx_hash = ? AND output_index = ? AND category = ?", row.TxHash, row.OutputIndex, row.Category).
					Delete(&model.CachedRecord{}).Error
				if err != nil {
					return
				}
			}
			for _, profile := range profiles {
				err = tx.Where("tx_hash = ? AND output_index = ?", profile.TxHash, profile.OutputIndex).
					Delete(&model.AmbassadorProfile{}).Error
				if err != nil {
					return
				}
			}
		}

		err = tx.CreateInBatches(rows, self.batchSize()).Error
		if err != nil {
			return
		}

		if len(profiles) == 0 {
			return
		}
		return tx.CreateInBatches(profiles, self.batchSize()).Error
	})
}

// Records of one category in insertion order
func (self *Store) Records(category model.Category) (out []*model.CachedRecord, err error) {
	self.mtx.RLock()
	defer self.mtx.RUnlock()

	if self.db == nil {
		return nil, ErrNotLoaded
	}

	out = make([]*model.CachedRecord, 0)
	err = self.db.Where("category = ?", category).Order("id").Find(&out).Error
	return
}

func (self *Store) Profiles() (out []*model.AmbassadorProfile, err error) {
	self.mtx.RLock()
	defer self.mtx.RUnlock()

	if self.db == nil {
		return nil, ErrNotLoaded
	}

	out = make([]*model.AmbassadorProfile, 0)
	err = self.db.Order("id").Find(&out).Error
	return
}

// Number of cached records
func (self *Store) Count() (out int64, err error) {
	self.mtx.RLock()
	defer self.mtx.RUnlock()

	if self.db == nil {
		return 0, ErrNotLoaded
	}

	err = self.db.Model(&model.CachedRecord{}).Count(&out).Error
	return
}

// Closes the database and removes its file. The store can be loaded again afterwards.
func (self *Store) Close() (err error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	return self.closeLocked()
}

func (self *Store) swap(db *gorm.DB, path string) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	err := self.closeLocked()
	if err != nil {
		self.log.WithError(err).Warn("Failed to close replaced database")
	}

	self.db = db
	self.path = path
}

func (self *Store) closeLocked() (err error) {
	if self.db == nil {
		return
	}

	sqlDB, err := self.db.DB()
	if err == nil {
		err = sqlDB.Close()
	}

	if removeErr := os.Remove(self.path); removeErr != nil && !os.IsNotExist(removeErr) {
		err = errors.Join(err, removeErr)
	}

	self.db = nil
	self.path = ""
	return
}

func (self *Store) open(path string) (db *gorm.DB, err error) {
	db, err = gorm.Open(sqlite.Open(path), &gorm.Config{Logger: model.NewGormLogger("cache-db")})
	if err != nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		return
	}

	// One connection, every statement sees the same database
	sqlDB.SetMaxOpenConns(1)

	migrations := &migrate.HttpFileSystemMigrationSource{
		FileSystem: http.FS(sql_migrations.FS),
	}

	n, err := migrate.Exec(sqlDB, "sqlite3", migrations, migrate.Up)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	self.log.WithField("num", n).WithField("path", path).Trace("Opened store")
	return
}

func (self *Store) tempPath() (path string, err error) {
	f, err := os.CreateTemp(self.config.Dir, "utxos-*.db")
	if err != nil {
		return
	}
	path = f.Name()
	err = f.Close()
	return
}

func (self *Store) batchSize() int {
	if self.config.InsertBatchSize <= 0 {
		return 100
	}
	return self.config.InsertBatchSize
}

func toProfile(record *model.CachedRecord) *model.AmbassadorProfile {
	if record.Category != model.CategoryMember || record.Datum == nil {
		return nil
	}

	decoded := datum.DecodeHex(model.CategoryMember, *record.Datum)
	if decoded == nil || decoded.Member == nil {
		return nil
	}

	out := &model.AmbassadorProfile{
		TxHash:        record.TxHash,
		OutputIndex:   record.OutputIndex,
		WalletAddress: decoded.Member.WalletAddress,
		FullName:      decoded.Member.FullName,
		DisplayName:   decoded.Member.DisplayName,
		EmailAddress:  decoded.Member.EmailAddress,
		Bio:           decoded.Member.Bio,
	}
	if decoded.Member.TotalPoints != nil {
		out.TotalPoints = *decoded.Member.TotalPoints
	}
	return out
}

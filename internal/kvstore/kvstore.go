package kvstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Storage keys. Values are JSON-serialized; a missing or malformed value is
// reinitialized to its documented default by the owning accessor.
const (
	KeyCart         = "cart"
	KeyUsers        = "users"
	KeyCurrentUser  = "currentUser"
	KeyExchangeRate = "exchangeRate"
	KeyPayments     = "payments"
)

var ErrNotFound = errors.New("kvstore: key not found")

type Entry struct {
	Key       string    `gorm:"primaryKey"`
	Value     string    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Entry) TableName() string { return "kv_entries" }

// Store is a durable string-keyed JSON store on an embedded SQLite database.
// It survives restarts and is cleared only by explicit deletes.
type Store struct {
	DB *gorm.DB
}

// Open opens (or creates) the store at path. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open kv store: %w", err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrate kv store: %w", err)
	}
	return &Store{DB: db}, nil
}

// GetRaw returns the raw JSON stored under key, or ErrNotFound.
func (s *Store) GetRaw(key string) (string, error) {
	var e Entry
	if err := s.DB.Where("key = ?", key).First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return e.Value, nil
}

// Get unmarshals the value stored under key into out. A malformed value is
// reported as an unmarshal error so callers can apply their reset policy.
func (s *Store) Get(key string, out any) error {
	raw, err := s.GetRaw(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("decode %q: %w", key, err)
	}
	return nil
}

// Set marshals v and upserts it under key.
func (s *Store) Set(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	e := Entry{Key: key, Value: string(data), UpdatedAt: time.Now().UTC()}
	return s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}).Create(&e).Error
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	return s.DB.Where("key = ?", key).Delete(&Entry{}).Error
}

// Has reports whether key exists.
func (s *Store) Has(key string) (bool, error) {
	var n int64
	if err := s.DB.Model(&Entry{}).Where("key = ?", key).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// Reset deletes every key. Recovery path only.
func (s *Store) Reset() error {
	return s.DB.Where("1 = 1").Delete(&Entry{}).Error
}

func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

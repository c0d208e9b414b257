package session

import (
	"encoding/json"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// sessionSlot is one key/value row. Values are stored as JSON so that
// structured slots remain queryable.
type sessionSlot struct {
	Key   string         `gorm:"primaryKey;column:slot_key"`
	Value datatypes.JSON `gorm:"column:slot_value"`
}

func (sessionSlot) TableName() string {
	return "session_slots"
}

// SQLiteStore is a session backend over an in-memory SQLite database.
// It lives exactly as long as the process; no file is written.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens an in-memory SQLite database and migrates the
// slot table.
func NewSQLiteStore() (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}
	if err := db.AutoMigrate(&sessionSlot{}); err != nil {
		return nil, fmt.Errorf("failed to migrate session schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(key string) (string, bool) {
	var slot sessionSlot
	err := s.db.First(&slot, "slot_key = ?", key).Error
	if err != nil {
		return "", false
	}
	var value string
	if err := json.Unmarshal(slot.Value, &value); err != nil {
		return "", false
	}
	return value, true
}

func (s *SQLiteStore) Set(key, value string) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return
	}
	slot := sessionSlot{Key: key, Value: datatypes.JSON(encoded)}
	s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&slot)
}

func (s *SQLiteStore) Clear(key string) {
	s.db.Delete(&sessionSlot{}, "slot_key = ?", key)
}

func (s *SQLiteStore) Reset() {
	s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&sessionSlot{})
}

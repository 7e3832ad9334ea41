// Package history keeps a small sqlite record of recent conversions for
// the /history endpoint. Only request metadata is stored, never file
// contents; the store is an observability aid, not a job queue.
package history

import (
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type ConversionRecord struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	RequestID     string    `gorm:"index" json:"request_id"`
	OriginalName  string    `json:"original_name"`
	SourceFormat  string    `json:"source_format"`
	TargetFormat  string    `json:"target_format"`
	Status        string    `json:"status"` // success, failed
	Error         string    `json:"error,omitempty"`
	OriginalSize  int64     `json:"original_size"`
	ConvertedSize int64     `json:"converted_size"`
	DurationMs    int64     `json:"duration_ms"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

type Store struct {
	db *gorm.DB
}

// Open creates or migrates the history database. An empty path returns a
// nil store; all Store methods tolerate a nil receiver so history can be
// switched off without touching callers.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, nil
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&ConversionRecord{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Record(rec *ConversionRecord) error {
	if s == nil {
		return nil
	}
	return s.db.Create(rec).Error
}

func (s *Store) Recent(limit int) ([]ConversionRecord, error) {
	if s == nil {
		return []ConversionRecord{}, nil
	}
	if limit <= 0 {
		limit = 20
	}
	var rows []ConversionRecord
	err := s.db.Order("created_at desc").Limit(limit).Find(&rows).Error
	return rows, err
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

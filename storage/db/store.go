// Package db provides a SQLite storage backend built on GORM.
package db

import (
	"os"
	"path/filepath"
	"time"

	"github.com/govm-net/wasmrpc/logging"
	"github.com/govm-net/wasmrpc/storage"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const (
	defaultDBPath = "./state.db"
)

// DBCell represents one storage cell in the database
type DBCell struct {
	Key       []byte    `gorm:"column:cell_key;primaryKey;type:blob"`
	Value     []byte    `gorm:"column:cell_value;type:blob;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName specifies the table name for DBCell
func (DBCell) TableName() string {
	return "cells"
}

// Store implements storage.Store using SQLite with GORM
type Store struct {
	db *gorm.DB
}

func init() {
	storage.Register(storage.DBBackend, func(params storage.Params) (storage.Store, error) {
		return NewStore(params.Path)
	})
}

// NewStore opens, and creates if needed, the SQLite database at dbPath
func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		dbPath = defaultDBPath
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, errors.Wrap(err, "create db directory")
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	if err := db.AutoMigrate(&DBCell{}); err != nil {
		return nil, errors.Wrap(err, "migrate database")
	}
	logging.Logger().Debug("opened sqlite store", zap.String("path", dbPath))
	return &Store{db: db}, nil
}

// Get implements storage.Store
func (s *Store) Get(key []byte) ([]byte, error) {
	var cell DBCell
	result := s.db.Where("cell_key = ?", key).First(&cell)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "get cell")
	}
	if cell.Value == nil {
		cell.Value = []byte{}
	}
	return cell.Value, nil
}

// Put implements storage.Store
func (s *Store) Put(key, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	cell := DBCell{Key: key, Value: value}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cell_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"cell_value", "updated_at"}),
	}).Create(&cell).Error
	return errors.Wrap(err, "put cell")
}

// Close closes the underlying database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Wrap(err, "get sql db")
	}
	return sqlDB.Close()
}

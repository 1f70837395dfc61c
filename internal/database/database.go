package database

import (
	"github.com/gdg-garage/campus-portal/internal/config"
	"github.com/gdg-garage/campus-portal/internal/models"
	"github.com/golang/glog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func Connect(cfg *config.Config) *gorm.DB {
	db, err := Open(cfg.DatabasePath)
	if err != nil {
		glog.Fatalf("Failed to connect to database: %v", err)
	}
	return db
}

// Open opens the SQLite database at path and migrates the schema. Tests pass ":memory:".
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// SQLite allows one writer; a single connection also keeps ":memory:" to one database.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.Account{}, &models.Node{}); err != nil {
		return nil, err
	}

	return db, nil
}

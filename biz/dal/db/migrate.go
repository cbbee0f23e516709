package db

import (
	"github.com/yi-nology/docvault/biz/dal/model"
	"gorm.io/gorm"
)

// Models lists every table owned by the service.
func Models() []any {
	return []any{
		&model.StorageBackend{},
		&model.Document{},
		&model.DocumentVersion{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

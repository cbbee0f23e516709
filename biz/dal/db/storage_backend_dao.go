package db

import (
	"context"
	"errors"

	"github.com/yi-nology/docvault/biz/dal/model"
	"github.com/yi-nology/docvault/pkg/storage"
	"gorm.io/gorm"
)

// StorageBackendDAO wraps CRUD operations for storage backend configurations.
type StorageBackendDAO struct{}

func NewStorageBackendDAO() *StorageBackendDAO { return &StorageBackendDAO{} }

// Create persists a new backend. Status defaults to ACTIVE.
func (dao *StorageBackendDAO) Create(ctx context.Context, db *gorm.DB, entity *model.StorageBackend) error {
	if entity == nil {
		return errors.New("storage backend must not be nil")
	}
	if entity.Name == "" {
		return errors.New("name is required")
	}
	if _, ok := storage.ParseKind(string(entity.Kind)); !ok {
		return errors.New("unknown storage backend kind")
	}
	if entity.Status == "" {
		entity.Status = model.BackendActive
	}
	if entity.Config == nil {
		entity.Config = storage.Options{}
	}
	return db.WithContext(ctx).Create(entity).Error
}

// GetByID fetches a backend by primary key.
func (dao *StorageBackendDAO) GetByID(ctx context.Context, db *gorm.DB, id uint) (*model.StorageBackend, error) {
	var entity model.StorageBackend
	if err := db.WithContext(ctx).First(&entity, id).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

// ListSelectable returns ACTIVE backends scoped to hubKey or global, by name.
func (dao *StorageBackendDAO) ListSelectable(ctx context.Context, db *gorm.DB, hubKey string) ([]model.StorageBackend, error) {
	var list []model.StorageBackend
	if err := db.WithContext(ctx).
		Where("status = ?", model.BackendActive).
		Where("hub_key = ? OR hub_key = ''", hubKey).
		Order("name ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// List returns every backend regardless of status.
func (dao *StorageBackendDAO) List(ctx context.Context, db *gorm.DB) ([]model.StorageBackend, error) {
	var list []model.StorageBackend
	if err := db.WithContext(ctx).Order("name ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// UpdateStatus switches a backend between ACTIVE and DISABLED.
func (dao *StorageBackendDAO) UpdateStatus(ctx context.Context, db *gorm.DB, id uint, status model.BackendStatus) error {
	result := db.WithContext(ctx).
		Model(&model.StorageBackend{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateConfig replaces the option map. The kind column is never written.
func (dao *StorageBackendDAO) UpdateConfig(ctx context.Context, db *gorm.DB, id uint, cfg storage.Options) error {
	result := db.WithContext(ctx).
		Model(&model.StorageBackend{ID: id}).
		Select("config").
		Updates(&model.StorageBackend{Config: cfg})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

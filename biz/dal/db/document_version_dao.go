package db

import (
	"context"
	"errors"
	"time"

	"github.com/yi-nology/docvault/biz/dal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentVersionDAO handles persistence of document versions.
type DocumentVersionDAO struct{}

func NewDocumentVersionDAO() *DocumentVersionDAO { return &DocumentVersionDAO{} }

// NextVersionNumber returns max(version_number)+1 for a document. Call it in
// the transaction that creates the version.
func (dao *DocumentVersionDAO) NextVersionNumber(ctx context.Context, db *gorm.DB, documentID string) (int, error) {
	var current int
	if err := db.WithContext(ctx).
		Model(&model.DocumentVersion{}).
		Where("document_id = ?", documentID).
		Select("COALESCE(MAX(version_number), 0)").
		Scan(&current).Error; err != nil {
		return 0, err
	}
	return current + 1, nil
}

func (dao *DocumentVersionDAO) Create(ctx context.Context, db *gorm.DB, version *model.DocumentVersion) error {
	if version == nil {
		return errors.New("document version must not be nil")
	}
	if version.DocumentID == "" {
		return errors.New("document_id is required")
	}
	if version.UploadState == "" {
		version.UploadState = model.UploadPending
	}
	return db.WithContext(ctx).Create(version).Error
}

// GetByID loads a version with its backend.
func (dao *DocumentVersionDAO) GetByID(ctx context.Context, db *gorm.DB, id uint) (*model.DocumentVersion, error) {
	var version model.DocumentVersion
	if err := db.WithContext(ctx).
		Preload("StorageBackend").
		First(&version, id).Error; err != nil {
		return nil, err
	}
	return &version, nil
}

// GetForUpdate loads a version with a row lock. db must be a transaction.
func (dao *DocumentVersionDAO) GetForUpdate(ctx context.Context, db *gorm.DB, id uint) (*model.DocumentVersion, error) {
	var version model.DocumentVersion
	if err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&version, id).Error; err != nil {
		return nil, err
	}
	return &version, nil
}

// ApplyUpdates writes the given columns of a version.
func (dao *DocumentVersionDAO) ApplyUpdates(ctx context.Context, db *gorm.DB, id uint, updates map[string]any) error {
	result := db.WithContext(ctx).
		Model(&model.DocumentVersion{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListByDocument returns all versions of a document, newest first.
func (dao *DocumentVersionDAO) ListByDocument(ctx context.Context, db *gorm.DB, documentID string) ([]model.DocumentVersion, error) {
	var list []model.DocumentVersion
	if err := db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("version_number DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// ListStale returns UPLOADING versions claimed before the cutoff.
func (dao *DocumentVersionDAO) ListStale(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]model.DocumentVersion, error) {
	var list []model.DocumentVersion
	tx := db.WithContext(ctx).
		Where("upload_state = ? AND claimed_at < ?", model.UploadUploading, cutoff).
		Order("claimed_at ASC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// ListByState returns versions in state, oldest first.
func (dao *DocumentVersionDAO) ListByState(ctx context.Context, db *gorm.DB, state model.UploadState, limit int) ([]model.DocumentVersion, error) {
	var list []model.DocumentVersion
	tx := db.WithContext(ctx).
		Where("upload_state = ?", state).
		Order("id ASC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

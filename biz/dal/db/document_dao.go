package db

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/yi-nology/docvault/biz/dal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentDAO handles persistence of documents.
type DocumentDAO struct{}

func NewDocumentDAO() *DocumentDAO { return &DocumentDAO{} }

// DocumentFilter narrows document listings.
type DocumentFilter struct {
	HubKey     string
	Query      string
	Visibility model.Visibility
}

func (dao *DocumentDAO) Create(ctx context.Context, db *gorm.DB, doc *model.Document) error {
	if doc == nil {
		return errors.New("document must not be nil")
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.Visibility == "" {
		doc.Visibility = model.VisibilityPrivate
	}
	return db.WithContext(ctx).Create(doc).Error
}

// GetByID loads a document of a hub together with its current version and
// that version's backend.
func (dao *DocumentDAO) GetByID(ctx context.Context, db *gorm.DB, hubKey, id string) (*model.Document, error) {
	var doc model.Document
	if err := db.WithContext(ctx).
		Preload("CurrentVersion.StorageBackend").
		Where("id = ? AND hub_key = ?", id, hubKey).
		First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// Get loads a document by id in any hub, without preloading versions.
func (dao *DocumentDAO) Get(ctx context.Context, db *gorm.DB, id string) (*model.Document, error) {
	var doc model.Document
	if err := db.WithContext(ctx).Where("id = ?", id).First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// LockForUpdate takes a row lock on a document. db must be a transaction.
func (dao *DocumentDAO) LockForUpdate(ctx context.Context, db *gorm.DB, id string) error {
	var doc model.Document
	return db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", id).
		First(&doc).Error
}

// List returns the documents of a hub, newest first.
func (dao *DocumentDAO) List(ctx context.Context, db *gorm.DB, filter DocumentFilter) ([]model.Document, error) {
	tx := db.WithContext(ctx).
		Preload("CurrentVersion").
		Where("hub_key = ?", filter.HubKey)
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		tx = tx.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if filter.Visibility != "" {
		tx = tx.Where("visibility = ?", filter.Visibility)
	}

	var docs []model.Document
	if err := tx.Order("created_at DESC").Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// SetCurrentVersion points the document at versionID and refreshes the
// file metadata shown for it.
func (dao *DocumentDAO) SetCurrentVersion(ctx context.Context, db *gorm.DB, docID string, versionID uint, meta map[string]any) error {
	updates := map[string]any{"current_version_id": versionID}
	for k, v := range meta {
		updates[k] = v
	}
	result := db.WithContext(ctx).
		Model(&model.Document{}).
		Where("id = ?", docID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a document and all of its versions in one transaction.
// Stored bytes are left on the backends.
func (dao *DocumentDAO) Delete(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Document{}).
			Where("id = ?", id).
			Update("current_version_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("document_id = ?", id).Delete(&model.DocumentVersion{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&model.Document{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

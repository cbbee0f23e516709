package service

import (
	"context"
	"errors"

	"github.com/yi-nology/docvault/biz/dal/db"
	"github.com/yi-nology/docvault/biz/dal/model"
	"gorm.io/gorm"
)

// Logic contains business rules on top of data persistence.
type Logic struct {
	db          *gorm.DB
	backendDAO  *db.StorageBackendDAO
	documentDAO *db.DocumentDAO
	versionDAO  *db.DocumentVersionDAO
}

func NewLogic(dbConn *gorm.DB) *Logic {
	return &Logic{
		db:          dbConn,
		backendDAO:  db.NewStorageBackendDAO(),
		documentDAO: db.NewDocumentDAO(),
		versionDAO:  db.NewDocumentVersionDAO(),
	}
}

// --------------------- Backend Operations ---------------------

// SelectableBackend returns the backend if new uploads into hubKey may use it.
func (l *Logic) SelectableBackend(ctx context.Context, hubKey string, id uint) (*model.StorageBackend, error) {
	backend, err := l.backendDAO.GetByID(ctx, l.db, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBackendNotFound
		}
		return nil, err
	}
	if !backend.Selectable() || (backend.HubKey != "" && backend.HubKey != hubKey) {
		return nil, ErrBackendNotSelectable
	}
	return backend, nil
}

// --------------------- Document Operations ---------------------

func (l *Logic) GetDocument(ctx context.Context, hubKey, id string) (*model.Document, error) {
	doc, err := l.documentDAO.GetByID(ctx, l.db, hubKey, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDocumentNotFound
	}
	return doc, err
}

// CreateDocument inserts doc with version 1 and makes that version current,
// all in one transaction.
func (l *Logic) CreateDocument(ctx context.Context, doc *model.Document, version *model.DocumentVersion) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := l.documentDAO.Create(ctx, tx, doc); err != nil {
			return err
		}
		version.DocumentID = doc.ID
		version.VersionNumber = 1
		if err := l.versionDAO.Create(ctx, tx, version); err != nil {
			return err
		}
		if err := l.documentDAO.SetCurrentVersion(ctx, tx, doc.ID, version.ID, nil); err != nil {
			return err
		}
		doc.CurrentVersionID = &version.ID
		return nil
	})
}

// AddVersion appends a version numbered max+1 and makes it current. meta
// refreshes the document's file metadata in the same transaction. The
// document row stays locked until commit so concurrent calls number their
// versions one after another.
func (l *Logic) AddVersion(ctx context.Context, docID string, version *model.DocumentVersion, meta map[string]any) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := l.documentDAO.LockForUpdate(ctx, tx, docID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDocumentNotFound
			}
			return err
		}
		next, err := l.versionDAO.NextVersionNumber(ctx, tx, docID)
		if err != nil {
			return err
		}
		version.DocumentID = docID
		version.VersionNumber = next
		if err := l.versionDAO.Create(ctx, tx, version); err != nil {
			return err
		}
		return l.documentDAO.SetCurrentVersion(ctx, tx, docID, version.ID, meta)
	})
}

func (l *Logic) DeleteDocument(ctx context.Context, id string) error {
	if err := l.documentDAO.Delete(ctx, l.db, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDocumentNotFound
		}
		return err
	}
	return nil
}

// --------------------- Version Operations ---------------------

func (l *Logic) GetVersion(ctx context.Context, id uint) (*model.DocumentVersion, error) {
	v, err := l.versionDAO.GetByID(ctx, l.db, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVersionNotFound
	}
	return v, err
}

func (l *Logic) ListVersions(ctx context.Context, docID string) ([]model.DocumentVersion, error) {
	return l.versionDAO.ListByDocument(ctx, l.db, docID)
}

func (l *Logic) ListFailedVersions(ctx context.Context, limit int) ([]model.DocumentVersion, error) {
	return l.versionDAO.ListByState(ctx, l.db, model.UploadFailed, limit)
}

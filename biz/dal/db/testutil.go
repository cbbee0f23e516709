package db

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/yi-nology/docvault/biz/dal/model"
	"github.com/yi-nology/docvault/pkg/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates an in-memory SQLite database for testing
func SetupTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent), // Reduce log noise in tests
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	// Every pooled connection would otherwise get its own empty database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get underlying DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate tables: %v", err)
	}

	return db
}

// CleanupTestDB closes the database connection
func CleanupTestDB(t testing.TB, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Logf("Warning: Failed to get underlying DB: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		t.Logf("Warning: Failed to close DB: %v", err)
	}
}

// CreateTestBackend creates an ACTIVE global backend of the given kind
func CreateTestBackend(t testing.TB, db *gorm.DB, name string, kind storage.Kind, cfg storage.Options) *model.StorageBackend {
	t.Helper()
	backend := &model.StorageBackend{
		Name:   name,
		Kind:   kind,
		Config: cfg,
	}
	if err := NewStorageBackendDAO().Create(context.Background(), db, backend); err != nil {
		t.Fatalf("Failed to create test backend: %v", err)
	}
	return backend
}

// CreateTestDocument creates a document with a single version in the given
// state and makes it current
func CreateTestDocument(t testing.TB, db *gorm.DB, hubKey string, backend *model.StorageBackend, state model.UploadState, storageKey string) (*model.Document, *model.DocumentVersion) {
	t.Helper()
	ctx := context.Background()

	doc := &model.Document{
		HubKey:   hubKey,
		OwnerID:  "owner-1",
		Title:    "Test document",
		MimeType: "text/plain",
	}
	if err := NewDocumentDAO().Create(ctx, db, doc); err != nil {
		t.Fatalf("Failed to create test document: %v", err)
	}

	version := &model.DocumentVersion{
		DocumentID:       doc.ID,
		VersionNumber:    1,
		StorageBackendID: backend.ID,
		StorageKey:       storageKey,
		UploadState:      state,
		UploadedBy:       "owner-1",
	}
	if err := NewDocumentVersionDAO().Create(ctx, db, version); err != nil {
		t.Fatalf("Failed to create test version: %v", err)
	}
	if err := NewDocumentDAO().SetCurrentVersion(ctx, db, doc.ID, version.ID, nil); err != nil {
		t.Fatalf("Failed to set current version: %v", err)
	}
	doc.CurrentVersionID = &version.ID
	return doc, version
}

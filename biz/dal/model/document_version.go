package model

import "time"

// DocumentVersion is one stored revision of a document. StorageKey holds
// the logical key until the upload succeeds and the physical locator after.
type DocumentVersion struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	CreatedAt        time.Time       `json:"created_at,omitempty"`
	UpdatedAt        time.Time       `json:"updated_at,omitempty"`
	DocumentID       string          `gorm:"column:document_id;size:36;uniqueIndex:uk_document_version,priority:1" json:"document_id"`
	VersionNumber    int             `gorm:"column:version_number;uniqueIndex:uk_document_version,priority:2" json:"version_number"`
	StorageBackendID uint            `gorm:"column:storage_backend_id;index:idx_version_backend" json:"storage_backend_id"`
	StorageBackend   *StorageBackend `gorm:"foreignKey:StorageBackendID" json:"storage_backend,omitempty"`
	StorageKey       string          `gorm:"column:storage_key;type:text" json:"storage_key"`
	UploadState      UploadState     `gorm:"column:upload_state;size:16;default:PENDING;index:idx_version_state" json:"upload_state"`
	ErrorMessage     string          `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
	UploadedAt       *time.Time      `gorm:"column:uploaded_at" json:"uploaded_at,omitempty"`
	UploadedBy       string          `gorm:"column:uploaded_by;size:128" json:"uploaded_by,omitempty"`

	// Staged temp file, kept so a failed upload can be dispatched again.
	SourcePath string     `gorm:"column:source_path;type:text" json:"-"`
	ClaimToken string     `gorm:"column:claim_token;size:36" json:"-"`
	ClaimedAt  *time.Time `gorm:"column:claimed_at" json:"claimed_at,omitempty"`
	Attempts   int        `gorm:"column:attempts;default:0" json:"attempts"`
}

// TableName overrides gorm to use document_version table.
func (DocumentVersion) TableName() string {
	return "document_version"
}

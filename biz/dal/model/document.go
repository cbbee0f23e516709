package model

import "time"

// Visibility is the audience a document is shared with.
type Visibility string

const (
	VisibilityPrivate    Visibility = "PRIVATE"
	VisibilityTeam       Visibility = "TEAM"
	VisibilityPublicLink Visibility = "PUBLIC_LINK"
)

// ValidVisibility reports whether v is a declared visibility.
func ValidVisibility(v Visibility) bool {
	switch v {
	case VisibilityPrivate, VisibilityTeam, VisibilityPublicLink:
		return true
	}
	return false
}

// Document is the logical file shown to users. Its bytes live in the
// current version's backend.
type Document struct {
	ID               string           `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt        time.Time        `json:"created_at,omitempty"`
	UpdatedAt        time.Time        `json:"updated_at,omitempty"`
	HubKey           string           `gorm:"column:hub_key;size:128;index:idx_document_hub" json:"hub_key,omitempty"`
	OwnerID          string           `gorm:"column:owner_id;size:128;index:idx_document_owner" json:"owner_id,omitempty"`
	Title            string           `gorm:"column:title;size:255" json:"title,omitempty"`
	Description      string           `gorm:"column:description;type:text" json:"description,omitempty"`
	MimeType         string           `gorm:"column:mime_type;size:255" json:"mime_type,omitempty"`
	SizeBytes        int64            `gorm:"column:size_bytes" json:"size_bytes"`
	ChecksumSHA256   string           `gorm:"column:checksum_sha256;size:64" json:"checksum_sha256,omitempty"`
	Visibility       Visibility       `gorm:"column:visibility;size:16;default:PRIVATE" json:"visibility,omitempty"`
	CurrentVersionID *uint            `gorm:"column:current_version_id" json:"current_version_id,omitempty"`
	CurrentVersion   *DocumentVersion `gorm:"foreignKey:CurrentVersionID" json:"current_version,omitempty"`
}

// TableName overrides gorm to use document table.
func (Document) TableName() string {
	return "document"
}

package model

import (
	"time"

	"github.com/yi-nology/docvault/pkg/storage"
)

// BackendStatus controls whether a backend accepts new uploads.
type BackendStatus string

const (
	BackendActive   BackendStatus = "ACTIVE"
	BackendDisabled BackendStatus = "DISABLED"
)

// StorageBackend is a named, configured instance of a backend kind.
// An empty HubKey makes the backend available to every hub.
type StorageBackend struct {
	ID        uint            `gorm:"primaryKey" json:"id,omitempty"`
	CreatedAt time.Time       `json:"created_at,omitempty"`
	UpdatedAt time.Time       `json:"updated_at,omitempty"`
	Name      string          `gorm:"column:name;size:128;uniqueIndex:uk_storage_backend_name" json:"name,omitempty"`
	Kind      storage.Kind    `gorm:"column:kind;size:16" json:"kind,omitempty"`
	Status    BackendStatus   `gorm:"column:status;size:16;default:ACTIVE;index:idx_backend_status" json:"status,omitempty"`
	Config    storage.Options `gorm:"column:config;type:text;serializer:json" json:"-"`
	HubKey    string          `gorm:"column:hub_key;size:128;index:idx_backend_hub" json:"hub_key"`
	CreatedBy string          `gorm:"column:created_by;size:128" json:"created_by,omitempty"`
}

// TableName overrides gorm to use storage_backend table.
func (StorageBackend) TableName() string {
	return "storage_backend"
}

// Selectable reports whether new uploads may target the backend.
func (b *StorageBackend) Selectable() bool {
	return b != nil && b.Status == BackendActive
}

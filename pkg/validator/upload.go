package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Default upload constraints
const (
	DefaultMaxUploadSize = 100 * 1024 * 1024 // 100MB
)

var (
	ErrEmptyFile       = errors.New("file is empty")
	ErrFileTooLarge    = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// UploadConfig defines constraints for file uploads.
// An empty AllowedMimeTypes accepts every type.
type UploadConfig struct {
	MaxFileSize      int64
	AllowedMimeTypes map[string]bool
}

// DefaultUploadConfig returns the default upload configuration.
func DefaultUploadConfig() *UploadConfig {
	return &UploadConfig{MaxFileSize: DefaultMaxUploadSize}
}

// NewUploadConfig builds a config from the configured size and type list.
func NewUploadConfig(maxSize int64, allowed []string) *UploadConfig {
	cfg := DefaultUploadConfig()
	if maxSize > 0 {
		cfg.MaxFileSize = maxSize
	}
	if len(allowed) > 0 {
		cfg.AllowedMimeTypes = make(map[string]bool, len(allowed))
		for _, typ := range allowed {
			cfg.AllowedMimeTypes[normalizeMimeType(typ)] = true
		}
	}
	return cfg
}

// ValidateFileSize checks if the file size is within the allowed limit.
func (c *UploadConfig) ValidateFileSize(size int64) error {
	if size <= 0 {
		return ErrEmptyFile
	}
	if c.MaxFileSize > 0 && size > c.MaxFileSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, size, c.MaxFileSize)
	}
	return nil
}

// ValidateMimeType checks if the MIME type is in the allowed whitelist.
func (c *UploadConfig) ValidateMimeType(mimeType string) error {
	if len(c.AllowedMimeTypes) == 0 {
		return nil
	}
	normalized := normalizeMimeType(mimeType)
	if !c.AllowedMimeTypes[normalized] {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, normalized)
	}
	return nil
}

// DetectMimeType sniffs the MIME type of the file at path. The declared type
// is used only when sniffing finds nothing more specific than octet-stream.
func DetectMimeType(path, declared string) (string, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", err
	}
	detected := normalizeMimeType(mt.String())
	if detected == "application/octet-stream" {
		if d := normalizeMimeType(declared); d != "" {
			return d, nil
		}
	}
	return detected, nil
}

// Handle MIME types with parameters (e.g., "text/plain; charset=utf-8")
func normalizeMimeType(mimeType string) string {
	normalized := strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.Index(normalized, ";"); idx > 0 {
		normalized = strings.TrimSpace(normalized[:idx])
	}
	return normalized
}

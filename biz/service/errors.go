package service

import (
	"errors"

	"github.com/yi-nology/docvault/biz/service/upload"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrVersionNotFound  = upload.ErrVersionNotFound
	ErrBackendNotFound  = errors.New("storage backend not found")
	// ErrBackendNotSelectable means the backend is disabled or belongs to another hub.
	ErrBackendNotSelectable = errors.New("storage backend is not available for this hub")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrFileRequired         = errors.New("file is required")
	ErrTitleRequired        = errors.New("title is required")
	ErrInvalidVisibility    = errors.New("invalid visibility")
	ErrInvalidHubKey        = errors.New("invalid hub key")
	// ErrVersionNotRetryable is returned when resubmitting a version that is not FAILED.
	ErrVersionNotRetryable = errors.New("only failed versions can be retried")
	// ErrSourceUnavailable means the staged file of a failed version is gone.
	ErrSourceUnavailable = errors.New("staged file no longer available")
)

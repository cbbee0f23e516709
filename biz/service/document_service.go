package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/yi-nology/docvault/biz/dal/db"
	"github.com/yi-nology/docvault/biz/dal/model"
	"github.com/yi-nology/docvault/biz/service/locator"
	"github.com/yi-nology/docvault/biz/service/upload"
	"github.com/yi-nology/docvault/pkg/common"
	"github.com/yi-nology/docvault/pkg/logging"
	"github.com/yi-nology/docvault/pkg/validator"
)

// UploadInput carries a new document and its first file.
type UploadInput struct {
	HubKey           string
	Title            string
	Description      string
	Visibility       model.Visibility
	StorageBackendID uint
	FileName         string
	ContentType      string
	Content          io.Reader
}

// VersionInput carries a new file for an existing document.
type VersionInput struct {
	HubKey           string
	DocumentID       string
	StorageBackendID uint
	FileName         string
	ContentType      string
	Content          io.Reader
}

// UploadResult reports what was recorded. A dispatch failure does not fail
// the request: the version is already FAILED and DispatchError says why.
type UploadResult struct {
	Document      *model.Document        `json:"document"`
	Version       *model.DocumentVersion `json:"version"`
	JobID         string                 `json:"job_id,omitempty"`
	DispatchError string                 `json:"dispatch_error,omitempty"`
}

// --------------------- Document operations ---------------------

func (s *Service) ListDocuments(ctx context.Context, hubKey, query string, visibility model.Visibility) ([]model.Document, error) {
	hub, ok := validator.SanitizeHubKey(hubKey)
	if !ok {
		return nil, ErrInvalidHubKey
	}
	if visibility != "" && !model.ValidVisibility(visibility) {
		return nil, ErrInvalidVisibility
	}
	return s.logic.documentDAO.List(ctx, s.logic.db, db.DocumentFilter{
		HubKey:     hub,
		Query:      query,
		Visibility: visibility,
	})
}

func (s *Service) GetDocument(ctx context.Context, hubKey, id string) (*model.Document, error) {
	return s.logic.GetDocument(ctx, strings.TrimSpace(hubKey), strings.TrimSpace(id))
}

// InitiateUpload stages the file, records the document with a PENDING first
// version and queues the upload.
func (s *Service) InitiateUpload(ctx context.Context, in *UploadInput) (*UploadResult, error) {
	if in == nil || in.Content == nil {
		return nil, ErrFileRequired
	}
	hub, ok := validator.SanitizeHubKey(in.HubKey)
	if !ok {
		return nil, ErrInvalidHubKey
	}
	if !s.perms.CanManage(ctx, hub) {
		return nil, ErrPermissionDenied
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = strings.TrimSpace(in.FileName)
	}
	if title == "" {
		return nil, ErrTitleRequired
	}
	visibility := in.Visibility
	if visibility == "" {
		visibility = model.VisibilityPrivate
	}
	if !model.ValidVisibility(visibility) {
		return nil, ErrInvalidVisibility
	}

	backend, err := s.logic.SelectableBackend(ctx, hub, in.StorageBackendID)
	if err != nil {
		return nil, err
	}
	staged, err := s.stage(in.FileName, in.ContentType, in.Content)
	if err != nil {
		return nil, err
	}

	userID, _ := common.GetUserID(ctx)
	doc := &model.Document{
		ID:             uuid.NewString(),
		HubKey:         hub,
		OwnerID:        userID,
		Title:          title,
		Description:    strings.TrimSpace(in.Description),
		MimeType:       staged.MimeType,
		SizeBytes:      staged.Size,
		ChecksumSHA256: staged.SHA256,
		Visibility:     visibility,
	}
	version := newVersion(hub, doc.ID, backend, staged, userID)
	if err := s.logic.CreateDocument(ctx, doc, version); err != nil {
		s.discard(staged)
		return nil, fmt.Errorf("create document: %w", err)
	}

	result := &UploadResult{Document: doc, Version: version}
	s.dispatch(ctx, result)
	return result, nil
}

// AddVersion uploads a new file for an existing document. The new version
// becomes current immediately, so the document is not openable until it is
// READY.
func (s *Service) AddVersion(ctx context.Context, in *VersionInput) (*UploadResult, error) {
	if in == nil || in.Content == nil {
		return nil, ErrFileRequired
	}
	hub := strings.TrimSpace(in.HubKey)
	doc, err := s.logic.GetDocument(ctx, hub, strings.TrimSpace(in.DocumentID))
	if err != nil {
		return nil, err
	}
	if !s.perms.CanManage(ctx, hub) {
		return nil, ErrPermissionDenied
	}
	backend, err := s.logic.SelectableBackend(ctx, hub, in.StorageBackendID)
	if err != nil {
		return nil, err
	}
	staged, err := s.stage(in.FileName, in.ContentType, in.Content)
	if err != nil {
		return nil, err
	}

	userID, _ := common.GetUserID(ctx)
	version := newVersion(hub, doc.ID, backend, staged, userID)
	meta := map[string]any{
		"mime_type":       staged.MimeType,
		"size_bytes":      staged.Size,
		"checksum_sha256": staged.SHA256,
	}
	if err := s.logic.AddVersion(ctx, doc.ID, version, meta); err != nil {
		s.discard(staged)
		return nil, fmt.Errorf("add version: %w", err)
	}

	doc.MimeType, doc.SizeBytes, doc.ChecksumSHA256 = staged.MimeType, staged.Size, staged.SHA256
	doc.CurrentVersionID = &version.ID
	doc.CurrentVersion = nil

	result := &UploadResult{Document: doc, Version: version}
	s.dispatch(ctx, result)
	return result, nil
}

func newVersion(hubKey, documentID string, backend *model.StorageBackend, staged *stagedFile, userID string) *model.DocumentVersion {
	return &model.DocumentVersion{
		StorageBackendID: backend.ID,
		StorageKey:       logicalKey(hubKey, documentID, staged.Name),
		UploadState:      model.UploadPending,
		UploadedBy:       userID,
		SourcePath:       staged.Path,
	}
}

// dispatch queues the version. When the queue refuses the job, the
// dispatcher has already marked the version FAILED; the result reflects that.
func (s *Service) dispatch(ctx context.Context, result *UploadResult) {
	v := result.Version
	job, err := s.dispatcher.Submit(ctx, v.ID, v.SourcePath)
	if err == nil {
		result.JobID = job.JobID
		return
	}

	logging.WithContext(ctx).Warn("upload dispatch failed",
		logging.String("document_id", result.Document.ID),
		logging.Uint("version_id", v.ID),
		logging.Err(err),
	)
	result.DispatchError = err.Error()
	if fresh, getErr := s.logic.GetVersion(ctx, v.ID); getErr == nil {
		result.Version = fresh
	}
}

func (s *Service) ListVersions(ctx context.Context, hubKey, documentID string) ([]model.DocumentVersion, error) {
	doc, err := s.GetDocument(ctx, hubKey, documentID)
	if err != nil {
		return nil, err
	}
	return s.logic.ListVersions(ctx, doc.ID)
}

// FileInfo describes where the current version of a document lives.
func (s *Service) FileInfo(ctx context.Context, hubKey, documentID string) (locator.FileInfo, error) {
	doc, err := s.GetDocument(ctx, hubKey, documentID)
	if err != nil {
		return locator.FileInfo{}, err
	}
	return locator.BuildFileInfo(doc), nil
}

// Open resolves the current version of a document. The only error is a
// missing document; every other failure is a structured outcome.
func (s *Service) Open(ctx context.Context, hubKey, documentID string) (*locator.Outcome, error) {
	doc, err := s.GetDocument(ctx, hubKey, documentID)
	if err != nil {
		return nil, err
	}
	return s.locator.Open(ctx, doc), nil
}

// DeleteDocument removes a document and its versions. Bytes already stored
// on backends are kept.
func (s *Service) DeleteDocument(ctx context.Context, hubKey, documentID string) error {
	doc, err := s.GetDocument(ctx, hubKey, documentID)
	if err != nil {
		return err
	}
	if !s.perms.CanDelete(ctx, doc.HubKey, doc) {
		return ErrPermissionDenied
	}
	if err := s.logic.DeleteDocument(ctx, doc.ID); err != nil {
		return err
	}
	logging.WithContext(ctx).Info("document deleted",
		logging.String("document_id", doc.ID),
		logging.String("hub", doc.HubKey),
	)
	return nil
}

// --------------------- Retry operations ---------------------

// RetryVersion queues a FAILED version again on behalf of the caller.
func (s *Service) RetryVersion(ctx context.Context, versionID uint) (upload.Job, error) {
	v, err := s.logic.GetVersion(ctx, versionID)
	if err != nil {
		return upload.Job{}, err
	}
	doc, err := s.logic.documentDAO.Get(ctx, s.logic.db, v.DocumentID)
	if err != nil {
		return upload.Job{}, ErrDocumentNotFound
	}
	if !s.perms.CanManage(ctx, doc.HubKey) {
		return upload.Job{}, ErrPermissionDenied
	}
	return s.resubmit(ctx, v)
}

// Resubmit queues a FAILED version again without a permission check.
func (s *Service) Resubmit(ctx context.Context, versionID uint) (upload.Job, error) {
	v, err := s.logic.GetVersion(ctx, versionID)
	if err != nil {
		return upload.Job{}, err
	}
	return s.resubmit(ctx, v)
}

func (s *Service) resubmit(ctx context.Context, v *model.DocumentVersion) (upload.Job, error) {
	if v.UploadState != model.UploadFailed {
		return upload.Job{}, fmt.Errorf("%w: version %d is %s", ErrVersionNotRetryable, v.ID, v.UploadState)
	}
	if v.SourcePath == "" {
		return upload.Job{}, ErrSourceUnavailable
	}
	if _, err := os.Stat(v.SourcePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return upload.Job{}, fmt.Errorf("%w: %s", ErrSourceUnavailable, v.SourcePath)
		}
		return upload.Job{}, err
	}
	return s.dispatcher.Submit(ctx, v.ID, v.SourcePath)
}

// RequeueFailed resubmits up to limit FAILED versions whose staged file is
// still present and returns how many were queued.
func (s *Service) RequeueFailed(ctx context.Context, limit int) (int, error) {
	failed, err := s.logic.ListFailedVersions(ctx, limit)
	if err != nil {
		return 0, err
	}
	queued := 0
	for i := range failed {
		v := &failed[i]
		if _, err := s.resubmit(ctx, v); err != nil {
			if !errors.Is(err, ErrSourceUnavailable) {
				logging.Warn("requeue failed version", logging.Uint("version_id", v.ID), logging.Err(err))
			}
			continue
		}
		queued++
	}
	return queued, nil
}

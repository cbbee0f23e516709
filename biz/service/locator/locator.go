// Package locator turns the stored locator of a document's current version
// back into something a client can consume: a byte stream for local files
// or a redirect URL for object stores and Drive.
package locator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/yi-nology/docvault/biz/dal/model"
	"github.com/yi-nology/docvault/pkg/logging"
	"github.com/yi-nology/docvault/pkg/metrics"
	"github.com/yi-nology/docvault/pkg/storage"
	"github.com/yi-nology/docvault/pkg/storage/gdrive"
	"github.com/yi-nology/docvault/pkg/storage/local"
	"github.com/yi-nology/docvault/pkg/storage/s3"
)

// Reason codes reported when a document cannot be opened.
const (
	ReasonNoCurrentVersion    = "no_current_version"
	ReasonFileMissing         = "file_missing"
	ReasonFileUnreadable      = "file_unreadable"
	ReasonProviderUnavailable = "provider_unavailable"
	ReasonBucketMissing       = "bucket_missing"
	ReasonUnsupportedBackend  = "unsupported_backend"
)

const defaultContentType = "application/octet-stream"

// ErrNotReady is the cause carried by 409 outcomes.
var ErrNotReady = errors.New("document version not ready")

// Mode tells the caller how to deliver a successful outcome.
type Mode string

const (
	ModeStream   Mode = "stream"
	ModeRedirect Mode = "redirect"
)

// FileInfo describes where the current version of a document lives.
type FileInfo struct {
	Ready        bool                `json:"ready"`
	Reason       string              `json:"reason,omitempty"`
	BackendKind  storage.Kind        `json:"backend_kind,omitempty"`
	StorageKey   string              `json:"storage_key,omitempty"`
	LocationType storage.LocatorType `json:"location_type,omitempty"`
	MimeType     string              `json:"mime_type,omitempty"`
	SizeBytes    int64               `json:"size_bytes,omitempty"`
	DocumentID   string              `json:"document_id"`
	VersionID    uint                `json:"version_id,omitempty"`
}

// Outcome is the result of Open. Exactly one of Body (stream), URL
// (redirect) or Reason (error) is meaningful.
type Outcome struct {
	Status int
	Ready  bool
	Mode   Mode
	Reason string

	URL string

	Body        io.ReadCloser
	Size        int64
	ContentType string
	FileName    string

	StorageKey string
	// Err is the underlying cause of a failed outcome.
	Err error
}

// OK reports whether the outcome carries content or a redirect.
func (o *Outcome) OK() bool {
	return o.Status == http.StatusOK
}

// Payload is the JSON body for redirect and error outcomes.
func (o *Outcome) Payload() map[string]any {
	body := map[string]any{"ready": o.Ready}
	if o.Mode != "" {
		body["mode"] = o.Mode
	}
	if o.URL != "" {
		body["url"] = o.URL
	}
	if o.Reason != "" {
		body["reason"] = o.Reason
	}
	if o.StorageKey != "" {
		body["storage_key"] = o.StorageKey
	}
	return body
}

// Resolver opens documents. It never returns an error: every failure is a
// structured Outcome.
type Resolver struct {
	mediaRoot     string
	lookup        storage.LookupFunc
	presigners    s3.PresignerFactory
	presignExpiry time.Duration
}

type Option func(*Resolver)

// WithLookup overrides how *_env credential indirections are read.
func WithLookup(lookup storage.LookupFunc) Option {
	return func(r *Resolver) { r.lookup = lookup }
}

// WithPresignerFactory replaces the S3 presigner used for redirects.
func WithPresignerFactory(f s3.PresignerFactory) Option {
	return func(r *Resolver) { r.presigners = f }
}

// WithPresignExpiry sets the lifetime of S3 redirect URLs.
func WithPresignExpiry(d time.Duration) Option {
	return func(r *Resolver) { r.presignExpiry = d }
}

func New(mediaRoot string, opts ...Option) *Resolver {
	r := &Resolver{
		mediaRoot:     mediaRoot,
		lookup:        storage.EnvLookup,
		presigners:    s3.DefaultPresignerFactory,
		presignExpiry: s3.DefaultPresignExpiry,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BuildFileInfo reports readiness and location of the current version.
// doc.CurrentVersion and its StorageBackend must be loaded.
func BuildFileInfo(doc *model.Document) FileInfo {
	info := FileInfo{DocumentID: doc.ID}
	v := doc.CurrentVersion
	if v == nil {
		info.Reason = ReasonNoCurrentVersion
		return info
	}
	info.VersionID = v.ID
	if v.UploadState != model.UploadReady {
		info.Reason = v.UploadState.Reason()
		return info
	}

	kind := backendKind(v)
	info.Ready = true
	info.BackendKind = kind
	info.StorageKey = v.StorageKey
	info.LocationType = locationType(kind)
	info.MimeType = doc.MimeType
	info.SizeBytes = doc.SizeBytes
	return info
}

// locationType depends only on the backend kind, never on the locator.
func locationType(kind storage.Kind) storage.LocatorType {
	switch kind {
	case storage.KindS3:
		return storage.LocatorS3URI
	case storage.KindGDrive:
		return storage.LocatorGDrive
	default:
		return storage.LocatorLocalPath
	}
}

func backendKind(v *model.DocumentVersion) storage.Kind {
	if v.StorageBackend == nil {
		return ""
	}
	return v.StorageBackend.Kind
}

// Open resolves the current version of doc. Versions that are not READY are
// rejected before any backend is touched.
func (r *Resolver) Open(ctx context.Context, doc *model.Document) *Outcome {
	info := BuildFileInfo(doc)
	if !info.Ready {
		metrics.RecordOpen("none", info.Reason)
		return &Outcome{
			Status: http.StatusConflict,
			Reason: info.Reason,
			Err:    fmt.Errorf("%w: %s", ErrNotReady, info.Reason),
		}
	}

	v := doc.CurrentVersion
	var out *Outcome
	switch info.BackendKind {
	case storage.KindLocal:
		out = r.openLocal(doc, v.StorageKey)
	case storage.KindS3:
		out = r.openS3(ctx, v)
	case storage.KindGDrive:
		out = openDrive(v.StorageKey)
	default:
		out = unsupported()
	}

	reason := out.Reason
	if reason == "" {
		reason = string(out.Mode)
	}
	metrics.RecordOpen(string(info.BackendKind), reason)
	if out.Status >= http.StatusInternalServerError {
		logging.WithContext(ctx).Warn("open document failed",
			logging.String("document_id", doc.ID),
			logging.Uint("version_id", v.ID),
			logging.String("reason", out.Reason),
			logging.Err(out.Err),
		)
	}
	return out
}

func (r *Resolver) openLocal(doc *model.Document, locator string) *Outcome {
	path := local.ResolvePath(r.mediaRoot, locator)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Outcome{Status: http.StatusNotFound, Reason: ReasonFileMissing, StorageKey: locator}
		}
		return &Outcome{Status: http.StatusInternalServerError, Reason: ReasonFileUnreadable, StorageKey: locator, Err: err}
	}
	stat, err := f.Stat()
	if err == nil && stat.IsDir() {
		err = errors.New("locator points to a directory")
	}
	if err != nil {
		_ = f.Close()
		return &Outcome{Status: http.StatusInternalServerError, Reason: ReasonFileUnreadable, StorageKey: locator, Err: err}
	}

	contentType := doc.MimeType
	if contentType == "" {
		contentType = defaultContentType
	}
	return &Outcome{
		Status:      http.StatusOK,
		Ready:       true,
		Mode:        ModeStream,
		Body:        f,
		Size:        stat.Size(),
		ContentType: contentType,
		FileName:    filepath.Base(path),
	}
}

func (r *Resolver) openS3(ctx context.Context, v *model.DocumentVersion) *Outcome {
	opts := s3.ParseOptions(v.StorageBackend.Config, r.lookup)

	bucket, key := opts.Bucket, v.StorageKey
	if loc := storage.ParseLocator(v.StorageKey); loc.Type == storage.LocatorS3URI && loc.Valid() {
		bucket, key = loc.Bucket, loc.Key
	}
	if bucket == "" {
		return &Outcome{
			Status: http.StatusInternalServerError,
			Reason: ReasonBucketMissing,
			Err:    storage.Missing(storage.KindS3, "bucket"),
		}
	}

	presigner, err := r.presigners(ctx, opts)
	if err != nil {
		return providerUnavailable(err)
	}
	url, err := s3.PresignGet(ctx, presigner, bucket, key, r.presignExpiry)
	if err != nil {
		return providerUnavailable(err)
	}
	return &Outcome{Status: http.StatusOK, Ready: true, Mode: ModeRedirect, URL: url}
}

func openDrive(locator string) *Outcome {
	loc := storage.ParseLocator(locator)
	if loc.Type != storage.LocatorGDrive || !loc.Valid() {
		return unsupported()
	}
	return &Outcome{Status: http.StatusOK, Ready: true, Mode: ModeRedirect, URL: gdrive.ViewerURL(loc.FileID)}
}

func providerUnavailable(err error) *Outcome {
	return &Outcome{Status: http.StatusInternalServerError, Reason: ReasonProviderUnavailable, Err: err}
}

func unsupported() *Outcome {
	return &Outcome{Status: http.StatusBadRequest, Reason: ReasonUnsupportedBackend}
}

// Package resolver maps a backend kind to its storage provider.
package resolver

import (
	"github.com/yi-nology/docvault/pkg/storage"
	"github.com/yi-nology/docvault/pkg/storage/gdrive"
	"github.com/yi-nology/docvault/pkg/storage/local"
	"github.com/yi-nology/docvault/pkg/storage/s3"
)

// Resolver builds providers for persisted backend configurations.
type Resolver struct {
	mediaRoot     string
	lookup        storage.LookupFunc
	s3Clients     s3.ClientFactory
	driveServices gdrive.ServiceFactory
}

// Option customises a Resolver.
type Option func(*Resolver)

// WithLookup overrides how *_env indirections are resolved.
func WithLookup(lookup storage.LookupFunc) Option {
	return func(r *Resolver) { r.lookup = lookup }
}

// WithS3ClientFactory injects the S3 client constructor.
func WithS3ClientFactory(f s3.ClientFactory) Option {
	return func(r *Resolver) { r.s3Clients = f }
}

// WithDriveServiceFactory injects the Google Drive client constructor.
func WithDriveServiceFactory(f gdrive.ServiceFactory) Option {
	return func(r *Resolver) { r.driveServices = f }
}

// New creates a resolver writing local files below mediaRoot.
func New(mediaRoot string, opts ...Option) *Resolver {
	r := &Resolver{
		mediaRoot:     mediaRoot,
		lookup:        storage.EnvLookup,
		s3Clients:     s3.DefaultClientFactory,
		driveServices: gdrive.DefaultServiceFactory,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MediaRoot returns the media root local locators are relative to.
func (r *Resolver) MediaRoot() string {
	return r.mediaRoot
}

// Lookup returns the secret lookup used by the providers.
func (r *Resolver) Lookup() storage.LookupFunc {
	return r.lookup
}

// Resolve returns the provider for kind. Kinds without a provider fail with
// UnsupportedBackendError; there is no fallback.
func (r *Resolver) Resolve(kind storage.Kind, options storage.Options) (storage.Provider, error) {
	switch kind {
	case storage.KindLocal:
		return local.New(r.mediaRoot, options)

	case storage.KindS3:
		return s3.New(options, r.lookup, r.s3Clients)

	case storage.KindGDrive:
		return gdrive.New(options, r.lookup, r.driveServices)

	default:
		return nil, &storage.UnsupportedBackendError{Kind: kind}
	}
}

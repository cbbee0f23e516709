package storage

// Package storage defines the provider contract shared by every storage
// backend kind. A provider moves a fully staged local file to its backend
// and returns a physical locator whose shape encodes the backend:
// a relative or absolute path for local storage, s3://bucket/key for
// S3-compatible storage and gdrive://fileId:name for Google Drive.

import (
	"context"
	"os"
	"strings"
)

// Kind identifies a storage backend technology.
type Kind string

const (
	KindLocal  Kind = "LOCAL"
	KindS3     Kind = "S3"
	KindGDrive Kind = "GDRIVE"
	KindBlob   Kind = "BLOB"
)

// Kinds lists every declared backend kind, including the ones without a provider.
var Kinds = []Kind{KindS3, KindGDrive, KindLocal, KindBlob}

// ParseKind normalises user input into a declared Kind.
func ParseKind(raw string) (Kind, bool) {
	candidate := Kind(strings.ToUpper(strings.TrimSpace(raw)))
	for _, k := range Kinds {
		if k == candidate {
			return k, true
		}
	}
	return "", false
}

// Provider uploads staged files to one backend kind.
// Implementations must not touch persisted state: the caller owns every
// state transition of the version being uploaded.
type Provider interface {
	// Upload transfers the file at sourcePath to the backend under logicalKey
	// and returns the physical locator of the stored bytes.
	// sourcePath must exist and be fully written before the call.
	// logicalKey is relative (no leading slash) and already carries the
	// caller's scoping prefix.
	Upload(ctx context.Context, sourcePath, logicalKey string) (string, error)

	// Kind returns the backend kind served by the provider.
	Kind() Kind
}

// LookupFunc resolves the value of an external secret, normally an
// environment variable.
type LookupFunc func(name string) (string, bool)

// EnvLookup reads secrets from the process environment.
func EnvLookup(name string) (string, bool) {
	return os.LookupEnv(name)
}

package storage

import "strings"

const (
	S3Scheme     = "s3://"
	GDriveScheme = "gdrive://"
)

// LocatorType names the shape of a physical locator for API consumers.
type LocatorType string

const (
	LocatorLocalPath LocatorType = "local_path"
	LocatorS3URI     LocatorType = "s3_uri"
	LocatorGDrive    LocatorType = "google_drive_file"
)

// Locator is a parsed physical locator.
type Locator struct {
	Type LocatorType
	Raw  string

	// S3
	Bucket string
	Key    string

	// Google Drive
	FileID   string
	FileName string
}

type locatorParser struct {
	prefix string
	typ    LocatorType
	parse  func(rest string, loc *Locator) bool
}

var locatorParsers = []locatorParser{
	{prefix: S3Scheme, typ: LocatorS3URI, parse: parseS3},
	{prefix: GDriveScheme, typ: LocatorGDrive, parse: parseGDrive},
}

// ParseLocator classifies a stored locator by scheme prefix. Anything without
// a known scheme is a filesystem path.
func ParseLocator(raw string) Locator {
	for _, p := range locatorParsers {
		if !strings.HasPrefix(raw, p.prefix) {
			continue
		}
		loc := Locator{Type: p.typ, Raw: raw}
		if p.parse(strings.TrimPrefix(raw, p.prefix), &loc) {
			return loc
		}
		return Locator{Type: p.typ, Raw: raw}
	}
	return Locator{Type: LocatorLocalPath, Raw: raw, Key: raw}
}

// Valid reports whether the scheme-specific part parsed.
func (l Locator) Valid() bool {
	switch l.Type {
	case LocatorS3URI:
		return l.Bucket != "" && l.Key != ""
	case LocatorGDrive:
		return l.FileID != ""
	default:
		return l.Raw != ""
	}
}

func parseS3(rest string, loc *Locator) bool {
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return false
	}
	loc.Bucket, loc.Key = bucket, key
	return true
}

func parseGDrive(rest string, loc *Locator) bool {
	id, name, _ := strings.Cut(rest, ":")
	if id == "" {
		return false
	}
	loc.FileID, loc.FileName = id, name
	return true
}

// S3Locator formats an s3:// locator.
func S3Locator(bucket, key string) string {
	return S3Scheme + bucket + "/" + key
}

// GDriveLocator formats a gdrive:// locator.
func GDriveLocator(fileID, name string) string {
	return GDriveScheme + fileID + ":" + name
}

// Package gdrive implements the Google Drive storage provider using a
// service account.
package gdrive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/yi-nology/docvault/pkg/storage"
)

// Scope grants access to files created by the service account only.
const Scope = drive.DriveFileScope

// ViewerURL returns the browser URL of a Drive file.
func ViewerURL(fileID string) string {
	return "https://drive.google.com/file/d/" + fileID + "/view"
}

// Options holds the resolved configuration of a GDRIVE backend.
type Options struct {
	FolderID           string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// ParseOptions reads the GDRIVE option keys, resolving *_env indirections.
// A JSON object stored inline under service_account_json is re-encoded as text.
func ParseOptions(opts storage.Options, lookup storage.LookupFunc) Options {
	return Options{
		FolderID:           strings.TrimSpace(opts.Value("folder_id", "folder_id_env").Resolve(lookup)),
		ServiceAccountJSON: opts.Value("service_account_json", "service_account_json_env").Resolve(lookup),
		ServiceAccountFile: strings.TrimSpace(opts.Value("service_account_file", "service_account_file_env").Resolve(lookup)),
	}
}

// Validate checks that a folder and one credential source are present.
func (o Options) Validate() error {
	if o.FolderID == "" {
		return storage.Missing(storage.KindGDrive, "folder_id")
	}
	if o.ServiceAccountJSON == "" && o.ServiceAccountFile == "" {
		return &storage.ConfigurationError{
			Kind: storage.KindGDrive,
			Msg:  "either service_account_json or service_account_file is required",
		}
	}
	return nil
}

// Credentials returns the service account key material.
func (o Options) Credentials() ([]byte, error) {
	if o.ServiceAccountJSON != "" {
		return []byte(o.ServiceAccountJSON), nil
	}
	data, err := os.ReadFile(o.ServiceAccountFile)
	if err != nil {
		return nil, &storage.ConfigurationError{
			Kind:  storage.KindGDrive,
			Field: "service_account_file",
			Msg:   err.Error(),
		}
	}
	return data, nil
}

// FileCreator creates a file in a Drive folder.
type FileCreator interface {
	CreateFile(ctx context.Context, name, folderID string, media io.Reader) (*drive.File, error)
}

// ServiceFactory builds a FileCreator from service account key material.
type ServiceFactory func(ctx context.Context, credentialsJSON []byte, scopes ...string) (FileCreator, error)

type driveService struct {
	srv *drive.Service
}

func (d *driveService) CreateFile(ctx context.Context, name, folderID string, media io.Reader) (*drive.File, error) {
	return d.srv.Files.Create(&drive.File{
		Name:    name,
		Parents: []string{folderID},
	}).
		Media(media).
		Fields("id", "name").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
}

// DefaultServiceFactory authenticates with the service account key and
// returns a Drive v3 client.
func DefaultServiceFactory(ctx context.Context, credentialsJSON []byte, scopes ...string) (FileCreator, error) {
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, scopes...)
	if err != nil {
		return nil, &storage.ConfigurationError{Kind: storage.KindGDrive, Field: "credentials", Msg: err.Error()}
	}
	srv, err := drive.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &driveService{srv: srv}, nil
}

// Provider uploads staged files into a Drive folder.
type Provider struct {
	opts       Options
	newService ServiceFactory
}

// New creates a Drive provider. A nil factory selects DefaultServiceFactory.
func New(opts storage.Options, lookup storage.LookupFunc, factory ServiceFactory) (*Provider, error) {
	if factory == nil {
		factory = DefaultServiceFactory
	}
	return &Provider{opts: ParseOptions(opts, lookup), newService: factory}, nil
}

// Kind returns GDRIVE.
func (p *Provider) Kind() storage.Kind {
	return storage.KindGDrive
}

// Upload creates a file named after the last segment of logicalKey in the
// configured folder and returns a gdrive://id:name locator.
func (p *Provider) Upload(ctx context.Context, sourcePath, logicalKey string) (string, error) {
	if err := p.opts.Validate(); err != nil {
		return "", err
	}
	key, err := storage.CleanKey(logicalKey)
	if err != nil {
		return "", err
	}
	creds, err := p.opts.Credentials()
	if err != nil {
		return "", err
	}

	f, err := os.Open(sourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", storage.ErrSourceMissing, sourcePath)
		}
		return "", &storage.TransferError{Kind: storage.KindGDrive, Op: "open source", Err: err}
	}
	defer f.Close()

	svc, err := p.newService(ctx, creds, Scope)
	if err != nil {
		if storage.IsConfiguration(err) {
			return "", err
		}
		return "", &storage.TransferError{Kind: storage.KindGDrive, Op: "create service", Err: err}
	}

	created, err := svc.CreateFile(ctx, path.Base(key), p.opts.FolderID, f)
	if err != nil {
		return "", &storage.TransferError{Kind: storage.KindGDrive, Op: "create file", Err: err}
	}
	return storage.GDriveLocator(created.Id, created.Name), nil
}

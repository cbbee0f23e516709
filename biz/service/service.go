package service

import (
	"context"

	"github.com/yi-nology/docvault/biz/service/locator"
	"github.com/yi-nology/docvault/biz/service/upload"
	"github.com/yi-nology/docvault/pkg/validator"
	"gorm.io/gorm"
)

// Dispatcher hands an upload job to the background workers.
type Dispatcher interface {
	Submit(ctx context.Context, versionID uint, sourcePath string) (upload.Job, error)
}

// Options tunes a Service. Zero values fall back to defaults.
type Options struct {
	TmpDir      string
	Uploads     *validator.UploadConfig
	Permissions PermissionChecker
}

// Service orchestrates document and backend operations using Logic.
type Service struct {
	logic      *Logic
	dispatcher Dispatcher
	locator    *locator.Resolver
	perms      PermissionChecker
	uploads    *validator.UploadConfig
	tmpDir     string
}

func NewService(dbConn *gorm.DB, dispatcher Dispatcher, resolver *locator.Resolver, opts Options) *Service {
	s := &Service{
		logic:      NewLogic(dbConn),
		dispatcher: dispatcher,
		locator:    resolver,
		perms:      opts.Permissions,
		uploads:    opts.Uploads,
		tmpDir:     opts.TmpDir,
	}
	if s.perms == nil {
		s.perms = RolePermissions{}
	}
	if s.uploads == nil {
		s.uploads = validator.DefaultUploadConfig()
	}
	if s.tmpDir == "" {
		s.tmpDir = "tmp_uploads"
	}
	return s
}

// Logic exposes the persistence rules for callers that bypass permission
// checks, such as the CLI.
func (s *Service) Logic() *Logic {
	return s.logic
}

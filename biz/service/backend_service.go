package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yi-nology/docvault/biz/dal/model"
	"github.com/yi-nology/docvault/pkg/common"
	"github.com/yi-nology/docvault/pkg/logging"
	"github.com/yi-nology/docvault/pkg/storage"
	"github.com/yi-nology/docvault/pkg/validator"
	"gorm.io/gorm"
)

// CreateBackendInput is the admin payload for a new storage backend.
// Config is stored as is and only checked when a provider uses it.
type CreateBackendInput struct {
	Name   string          `json:"name" validate:"required,max=128"`
	Kind   string          `json:"kind" validate:"required,storage_kind"`
	HubKey string          `json:"hub_key" validate:"hub_key"`
	Config storage.Options `json:"config"`
}

// --------------------- Backend operations ---------------------

// ListBackends returns the backends new uploads into hubKey may choose.
func (s *Service) ListBackends(ctx context.Context, hubKey string) ([]model.StorageBackend, error) {
	hub, ok := validator.SanitizeHubKey(hubKey)
	if !ok {
		return nil, ErrInvalidHubKey
	}
	return s.logic.backendDAO.ListSelectable(ctx, s.logic.db, hub)
}

// ListAllBackends returns every backend, disabled ones included.
func (s *Service) ListAllBackends(ctx context.Context) ([]model.StorageBackend, error) {
	return s.logic.backendDAO.List(ctx, s.logic.db)
}

func (s *Service) CreateBackend(ctx context.Context, in *CreateBackendInput) (*model.StorageBackend, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: input required", validator.ErrInvalid)
	}
	in.Name = strings.TrimSpace(in.Name)
	in.HubKey = strings.TrimSpace(in.HubKey)
	if err := validator.Struct(in); err != nil {
		return nil, err
	}
	if !s.perms.CanAdminister(ctx, in.HubKey) {
		return nil, ErrPermissionDenied
	}

	kind, _ := storage.ParseKind(in.Kind)
	userID, _ := common.GetUserID(ctx)
	backend := &model.StorageBackend{
		Name:      in.Name,
		Kind:      kind,
		HubKey:    in.HubKey,
		Config:    in.Config,
		CreatedBy: userID,
	}
	if err := s.logic.backendDAO.Create(ctx, s.logic.db, backend); err != nil {
		return nil, err
	}
	logging.WithContext(ctx).Info("storage backend created",
		logging.Uint("backend_id", backend.ID),
		logging.String("kind", string(kind)),
		logging.String("hub", backend.HubKey),
	)
	return backend, nil
}

// SetBackendStatus enables or disables a backend. Versions already stored
// on a disabled backend stay readable.
func (s *Service) SetBackendStatus(ctx context.Context, id uint, status model.BackendStatus) error {
	if status != model.BackendActive && status != model.BackendDisabled {
		return fmt.Errorf("%w: backend status %q", validator.ErrInvalid, status)
	}
	backend, err := s.getBackend(ctx, id)
	if err != nil {
		return err
	}
	if !s.perms.CanAdminister(ctx, backend.HubKey) {
		return ErrPermissionDenied
	}
	return s.logic.backendDAO.UpdateStatus(ctx, s.logic.db, id, status)
}

// UpdateBackendConfig replaces the option map. The kind never changes.
func (s *Service) UpdateBackendConfig(ctx context.Context, id uint, cfg storage.Options) error {
	backend, err := s.getBackend(ctx, id)
	if err != nil {
		return err
	}
	if !s.perms.CanAdminister(ctx, backend.HubKey) {
		return ErrPermissionDenied
	}
	if cfg == nil {
		cfg = storage.Options{}
	}
	return s.logic.backendDAO.UpdateConfig(ctx, s.logic.db, id, cfg)
}

func (s *Service) getBackend(ctx context.Context, id uint) (*model.StorageBackend, error) {
	backend, err := s.logic.backendDAO.GetByID(ctx, s.logic.db, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBackendNotFound
	}
	return backend, err
}

package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/yi-nology/docvault/biz/dal/model"
	"github.com/yi-nology/docvault/biz/service"
	"github.com/yi-nology/docvault/pkg/storage"
)

// BackendHandler exposes storage backend selection and administration.
type BackendHandler struct {
	service *service.Service
}

func NewBackendHandler(svc *service.Service) *BackendHandler {
	return &BackendHandler{service: svc}
}

// ListHubBackends returns the backends an upload into the hub may target.
func (h *BackendHandler) ListHubBackends(ctx context.Context, c *app.RequestContext) {
	list, err := h.service.ListBackends(ctx, c.Param("hub"))
	if err != nil {
		WriteError(ctx, c, err)
		return
	}
	RespondData(c, consts.StatusOK, map[string]any{"backends": list})
}

func (h *BackendHandler) ListBackends(ctx context.Context, c *app.RequestContext) {
	list, err := h.service.ListAllBackends(ctx)
	if err != nil {
		WriteError(ctx, c, err)
		return
	}
	RespondData(c, consts.StatusOK, map[string]any{"backends": list})
}

func (h *BackendHandler) CreateBackend(ctx context.Context, c *app.RequestContext) {
	var in service.CreateBackendInput
	if err := c.BindJSON(&in); err != nil {
		WriteBadRequest(c, err)
		return
	}
	backend, err := h.service.CreateBackend(ctx, &in)
	if err != nil {
		WriteError(ctx, c, err)
		return
	}
	RespondData(c, consts.StatusCreated, backend)
}

func (h *BackendHandler) DisableBackend(ctx context.Context, c *app.RequestContext) {
	h.setStatus(ctx, c, model.BackendDisabled)
}

func (h *BackendHandler) EnableBackend(ctx context.Context, c *app.RequestContext) {
	h.setStatus(ctx, c, model.BackendActive)
}

func (h *BackendHandler) setStatus(ctx context.Context, c *app.RequestContext, status model.BackendStatus) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		WriteBadRequest(c, err)
		return
	}
	if err := h.service.SetBackendStatus(ctx, id, status); err != nil {
		WriteError(ctx, c, err)
		return
	}
	RespondOK(c)
}

// UpdateBackendConfig replaces the option map of a backend.
func (h *BackendHandler) UpdateBackendConfig(ctx context.Context, c *app.RequestContext) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		WriteBadRequest(c, err)
		return
	}
	var cfg storage.Options
	if err := c.BindJSON(&cfg); err != nil {
		WriteBadRequest(c, err)
		return
	}
	if err := h.service.UpdateBackendConfig(ctx, id, cfg); err != nil {
		WriteError(ctx, c, err)
		return
	}
	RespondOK(c)
}

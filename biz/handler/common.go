package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/yi-nology/docvault/biz/service"
	"github.com/yi-nology/docvault/pkg/common"
	"github.com/yi-nology/docvault/pkg/logging"
	"github.com/yi-nology/docvault/pkg/validator"
)

// StatusFor maps a service error to the HTTP status reported to clients.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrDocumentNotFound),
		errors.Is(err, service.ErrVersionNotFound),
		errors.Is(err, service.ErrBackendNotFound):
		return consts.StatusNotFound
	case errors.Is(err, service.ErrPermissionDenied):
		return consts.StatusForbidden
	case errors.Is(err, service.ErrBackendNotSelectable),
		errors.Is(err, service.ErrVersionNotRetryable),
		errors.Is(err, service.ErrSourceUnavailable):
		return consts.StatusConflict
	case errors.Is(err, validator.ErrFileTooLarge):
		return consts.StatusRequestEntityTooLarge
	case errors.Is(err, validator.ErrUnsupportedType):
		return consts.StatusUnsupportedMediaType
	case errors.Is(err, validator.ErrInvalid),
		errors.Is(err, validator.ErrEmptyFile),
		errors.Is(err, service.ErrFileRequired),
		errors.Is(err, service.ErrTitleRequired),
		errors.Is(err, service.ErrInvalidVisibility),
		errors.Is(err, service.ErrInvalidHubKey):
		return consts.StatusBadRequest
	}
	return consts.StatusInternalServerError
}

// WriteError writes err with the status StatusFor picks. Internal errors
// are logged and their text is kept out of Msg.
func WriteError(ctx context.Context, c *app.RequestContext, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status == consts.StatusInternalServerError {
		logging.WithContext(ctx).Error("request failed",
			logging.String("path", string(c.Request.URI().Path())),
			logging.Err(err),
		)
		msg = "internal error"
	}
	c.JSON(status, common.CommonResponse{
		Code:  status,
		Msg:   msg,
		Error: err.Error(),
	})
}

func WriteBadRequest(c *app.RequestContext, err error) {
	c.JSON(consts.StatusBadRequest, common.CommonResponse{
		Code:  consts.StatusBadRequest,
		Msg:   err.Error(),
		Error: err.Error(),
	})
}

// RespondData writes data in the success envelope.
func RespondData(c *app.RequestContext, status int, data any) {
	c.JSON(status, common.CommonResponse{
		Code: status,
		Msg:  http.StatusText(status),
		Data: data,
	})
}

func RespondOK(c *app.RequestContext) {
	c.JSON(consts.StatusOK, common.CommonResponse{Code: consts.StatusOK, Msg: http.StatusText(consts.StatusOK)})
}

// Ping is the liveness probe.
func Ping(_ context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, common.CommonResponse{Code: consts.StatusOK, Msg: "pong"})
}

// --------------------- Utility functions ---------------------

func parseUintParam(c *app.RequestContext, name string) (uint, error) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid " + name)
	}
	return uint(id), nil
}

// truthy accepts the usual spellings of a boolean query flag.
func truthy(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

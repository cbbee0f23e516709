package handler

import (
	"context"
	"errors"
	"mime"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/yi-nology/docvault/biz/dal/model"
	"github.com/yi-nology/docvault/biz/service"
	"github.com/yi-nology/docvault/biz/service/locator"
	"github.com/yi-nology/docvault/pkg/common"
)

// DocumentHandler exposes document, version and open endpoints.
type DocumentHandler struct {
	service *service.Service
}

func NewDocumentHandler(svc *service.Service) *DocumentHandler {
	return &DocumentHandler{service: svc}
}

// ListDocuments supports ?q= text search and ?visibility= filtering.
func (h *DocumentHandler) ListDocuments(ctx context.Context, c *app.RequestContext) {
	visibility := model.Visibility(strings.ToUpper(strings.TrimSpace(c.Query("visibility"))))
	docs, err := h.service.ListDocuments(ctx, c.Param("hub"), c.Query("q"), visibility)
	if err != nil {
		WriteError(ctx, c, err)
		return
	}
	RespondData(c, consts.StatusOK, map[string]any{"documents": docs})
}

func (h *DocumentHandler) GetDocument(ctx context.Context, c *app.RequestContext) {
	doc, err := h.service.GetDocument(ctx, c.Param("hub"), c.Param("id"))
	if err != nil {
		WriteError(ctx, c, err)
		return
	}
	RespondData(c, consts.StatusOK, doc)
}

// uploadForm is the multipart part shared by document and version uploads.
type uploadForm struct {
	header    *multipart.FileHeader
	backendID uint
}

func readUploadForm(c *app.RequestContext) (*uploadForm, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return nil, service.ErrFileRequired
	}
	backendID, err := strconv.ParseUint(strings.TrimSpace(c.PostForm("storage_backend_id")), 10, 64)
	if err != nil || backendID == 0 {
		return nil, errors.New("storage_backend_id is required")
	}
	return &uploadForm{header: fileHeader, backendID: uint(backendID)}, nil
}

// UploadDocument creates a document from a multipart form. The response is
// sent once the file is staged; the transfer to the backend happens later.
func (h *DocumentHandler) UploadDocument(ctx context.Context, c *app.RequestContext) {
	form, err := readUploadForm(c)
	if err != nil {
		WriteBadRequest(c, err)
		return
	}
	file, err := form.header.Open()
	if err != nil {
		WriteBadRequest(c, err)
		return
	}
	defer file.Close()

	res, err := h.service.InitiateUpload(ctx, &service.UploadInput{
		HubKey:           c.Param("hub"),
		Title:            c.PostForm("title"),
		Description:      c.PostForm("description"),
		Visibility:       model.Visibility(strings.ToUpper(strings.TrimSpace(c.PostForm("visibility")))),
		StorageBackendID: form.backendID,
		FileName:         form.header.Filename,
		ContentType:      form.header.Header.Get("Content-Type"),
		Content:          file,
	})
	if err != nil {
		WriteError(ctx, c, err)
		return
	}
	RespondData(c, consts.StatusCreated, res)
}

func (h *DocumentHandler) AddVersion(ctx context.Context, c *app.RequestContext) {
	form, err := readUploadForm(c)
	if err != nil {
		WriteBadRequest(c, err)
		return
	}
	file, err := form.header.Open()
	if err != nil {
		WriteBadRequest(c, err)
		return
	}
	defer file.Close()

	res, err := h.service.AddVersion(ctx, &service.VersionInput{
		HubKey:           c.Param("hub"),
		DocumentID:       c.Param("id"),
		StorageBackendID: form.backendID,
		FileName:         form.header.Filename,
		ContentType:      form.header.Header.Get("Content-Type"),
		Content:          file,
	})
	if err != nil {
		WriteError(ctx, c, err)
		return
	}
	RespondData(c, consts.StatusCreated, res)
}

func (h *DocumentHandler) ListVersions(ctx context.Context, c *app.RequestContext) {
	versions, err := h.service.ListVersions(ctx, c.Param("hub"), c.Param("id"))
	if err != nil {
		WriteError(ctx, c, err)
		return
	}
	RespondData(c, consts.StatusOK, map[string]any{"versions": versions})
}

func (h *DocumentHandler) FileInfo(ctx context.Context, c *app.RequestContext) {
	info, err := h.service.FileInfo(ctx, c.Param("hub"), c.Param("id"))
	if err != nil {
		WriteError(ctx, c, err)
		return
	}
	RespondData(c, consts.StatusOK, info)
}

// Open streams local files and answers redirects with their URL, or with a
// 302 when ?redirect=1 is set. Failed outcomes keep their own status.
func (h *DocumentHandler) Open(ctx context.Context, c *app.RequestContext) {
	out, err := h.service.Open(ctx, c.Param("hub"), c.Param("id"))
	if err != nil {
		WriteError(ctx, c, err)
		return
	}

	if !out.OK() {
		msg := out.Reason
		if out.Err != nil {
			msg = out.Err.Error()
		}
		c.JSON(out.Status, common.CommonResponse{
			Code:  out.Status,
			Msg:   msg,
			Error: out.Reason,
			Data:  out.Payload(),
		})
		return
	}

	switch out.Mode {
	case locator.ModeStream:
		c.Response.Header.Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": out.FileName}))
		c.SetContentType(out.ContentType)
		c.SetStatusCode(consts.StatusOK)
		c.SetBodyStream(out.Body, int(out.Size))
	case locator.ModeRedirect:
		if truthy(c.Query("redirect")) {
			c.Redirect(consts.StatusFound, []byte(out.URL))
			return
		}
		RespondData(c, consts.StatusOK, out.Payload())
	}
}

// DeleteDocument removes the document and its version history. Stored bytes
// are left on the backends.
func (h *DocumentHandler) DeleteDocument(ctx context.Context, c *app.RequestContext) {
	if err := h.service.DeleteDocument(ctx, c.Param("hub"), c.Param("id")); err != nil {
		WriteError(ctx, c, err)
		return
	}
	RespondOK(c)
}

// RetryVersion queues a FAILED version again from its staged file.
func (h *DocumentHandler) RetryVersion(ctx context.Context, c *app.RequestContext) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		WriteBadRequest(c, err)
		return
	}
	job, err := h.service.RetryVersion(ctx, id)
	if err != nil {
		WriteError(ctx, c, err)
		return
	}
	RespondData(c, consts.StatusAccepted, job)
}

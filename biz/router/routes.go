package router

import (
	"github.com/cloudwego/hertz/pkg/route"
	"github.com/yi-nology/docvault/biz/handler"
)

func registerDocumentRoutes(api *route.RouterGroup, h *handler.DocumentHandler) {
	if h == nil {
		return
	}

	docs := api.Group("/hubs/:hub/documents")
	docs.GET("", h.ListDocuments)
	docs.POST("", h.UploadDocument)
	docs.GET("/:id", h.GetDocument)
	docs.DELETE("/:id", h.DeleteDocument)
	docs.GET("/:id/versions", h.ListVersions)
	docs.POST("/:id/versions", h.AddVersion)
	docs.GET("/:id/file-info", h.FileInfo)
	docs.GET("/:id/open", h.Open)

	api.POST("/versions/:id/retry", h.RetryVersion)
}

func registerBackendRoutes(api *route.RouterGroup, h *handler.BackendHandler) {
	if h == nil {
		return
	}

	api.GET("/hubs/:hub/backends", h.ListHubBackends)

	backends := api.Group("/backends")
	backends.GET("", h.ListBackends)
	backends.POST("", h.CreateBackend)
	backends.POST("/:id/disable", h.DisableBackend)
	backends.POST("/:id/enable", h.EnableBackend)
	backends.PUT("/:id/config", h.UpdateBackendConfig)
}

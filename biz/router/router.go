package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/adaptor"
	"github.com/yi-nology/docvault/biz/handler"
	"github.com/yi-nology/docvault/biz/handler/version"
	"github.com/yi-nology/docvault/biz/middleware"
	"github.com/yi-nology/docvault/pkg/config"
	"github.com/yi-nology/docvault/pkg/metrics"
)

// Handlers groups the HTTP handlers mounted by Register.
type Handlers struct {
	Documents *handler.DocumentHandler
	Backends  *handler.BackendHandler
}

// Register installs the middleware chain and every route.
func Register(r *server.Hertz, cors *config.CORSConfig, h Handlers) {
	r.Use(
		middleware.Recovery(),
		middleware.Logging(),
		middleware.Metrics(),
		middleware.CORS(cors),
		middleware.Auth(),
	)

	r.GET("/ping", handler.Ping)
	r.GET("/metrics", adaptor.HertzHandler(metrics.Handler()))

	v1 := r.Group("/api/v1")
	v1.GET("/version", version.GetVersion)

	api := v1.Group("", middleware.RequireAuth())
	registerDocumentRoutes(api, h.Documents)
	registerBackendRoutes(api, h.Backends)
}

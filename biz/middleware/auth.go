package middleware

import (
	"context"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/yi-nology/docvault/pkg/common"
)

const (
	HeaderUserID  = "X-User-Id"
	HeaderHubRole = "X-Hub-Role"
)

// Auth returns a middleware that extracts the caller's identity and hub role
// from request headers and adds them to the context. It does NOT enforce
// authentication; membership is resolved by the gateway in front of us.
func Auth() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		if user := strings.TrimSpace(string(c.GetHeader(HeaderUserID))); user != "" {
			ctx = common.ContextWithUserID(ctx, user)
		}
		if role := strings.TrimSpace(string(c.GetHeader(HeaderHubRole))); role != "" {
			ctx = common.ContextWithHubRole(ctx, role)
		}
		c.Next(ctx)
	}
}

// RequireAuth rejects requests that reach it without a user ID.
// Mount it after Auth.
func RequireAuth() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		if _, ok := common.GetUserID(ctx); !ok {
			c.JSON(consts.StatusUnauthorized, common.CommonResponse{
				Code:  consts.StatusUnauthorized,
				Error: "authentication required",
				Msg:   "missing " + HeaderUserID + " header",
			})
			c.Abort()
			return
		}
		c.Next(ctx)
	}
}

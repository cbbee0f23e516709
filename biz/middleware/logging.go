package middleware

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/google/uuid"
	"github.com/yi-nology/docvault/pkg/logging"
	"github.com/yi-nology/docvault/pkg/metrics"
)

const HeaderRequestID = "X-Request-Id"

// Logging returns a middleware that tags the request context with a request
// ID and logs the request once the handler chain has finished.
func Logging() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()

		requestID := string(c.GetHeader(HeaderRequestID))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Response.Header.Set(HeaderRequestID, requestID)
		ctx = logging.WithFields(ctx, logging.String("request_id", requestID))

		c.Next(ctx)

		latency := time.Since(start)
		status := c.Response.StatusCode()
		fields := []logging.Field{
			logging.String("method", string(c.Request.Method())),
			logging.String("path", string(c.Request.URI().Path())),
			logging.Int("status", status),
			logging.Duration("latency", latency),
			logging.String("client_ip", c.ClientIP()),
		}
		log := logging.WithContext(ctx)
		if status >= 500 {
			log.Error("request", fields...)
		} else {
			log.Info("request", fields...)
		}
	}
}

// Metrics records request counts and latency by route template, so paths
// carrying IDs do not explode label cardinality.
func Metrics() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		c.Next(ctx)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequest(string(c.Request.Method()), route, c.Response.StatusCode(), time.Since(start))
	}
}

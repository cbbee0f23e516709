package common

import (
	"context"
	"strings"
)

// CommonResponse is a lightweight response wrapper used by HTTP handlers.
type CommonResponse struct {
	Code  int         `json:"code"`
	Msg   string      `json:"msg,omitempty"`
	Error string      `json:"error,omitempty"`
	Data  interface{} `json:"data,omitempty"`
}

// ReturnOK creates a HTTP 200 response.
func (CommonResponse) ReturnOK() CommonResponse {
	return CommonResponse{Code: 200}
}

type contextKey string

const (
	userIDKey  contextKey = "user_id"
	hubRoleKey contextKey = "hub_role"
)

// ContextWithUserID stores user ID into context.
func ContextWithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, strings.TrimSpace(id))
}

// GetUserID retrieves the user ID from context.
func GetUserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// ContextWithHubRole stores the caller's role in the hub being addressed.
func ContextWithHubRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, hubRoleKey, strings.ToUpper(strings.TrimSpace(role)))
}

// GetHubRole retrieves the caller's hub role, upper-cased.
func GetHubRole(ctx context.Context) string {
	role, _ := ctx.Value(hubRoleKey).(string)
	return role
}

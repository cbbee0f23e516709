package service

import (
	"context"

	"github.com/yi-nology/docvault/biz/dal/model"
	"github.com/yi-nology/docvault/pkg/common"
)

// Hub roles understood by RolePermissions.
const (
	RoleOwner  = "OWNER"
	RoleAdmin  = "ADMIN"
	RoleEditor = "EDITOR"
	RoleViewer = "VIEWER"
)

// PermissionChecker gates write operations. Membership itself is resolved
// upstream; implementations only interpret what the request carries.
type PermissionChecker interface {
	// CanManage reports whether the caller may upload into the hub.
	CanManage(ctx context.Context, hubKey string) bool
	// CanDelete reports whether the caller may delete doc.
	CanDelete(ctx context.Context, hubKey string, doc *model.Document) bool
	// CanAdminister reports whether the caller may configure storage backends.
	CanAdminister(ctx context.Context, hubKey string) bool
}

// RolePermissions decides from the hub role stored in the request context.
type RolePermissions struct{}

var _ PermissionChecker = RolePermissions{}

func (RolePermissions) CanManage(ctx context.Context, _ string) bool {
	switch common.GetHubRole(ctx) {
	case RoleOwner, RoleAdmin, RoleEditor:
		return true
	}
	return false
}

// CanDelete lets a document's owner delete it regardless of role.
func (p RolePermissions) CanDelete(ctx context.Context, hubKey string, doc *model.Document) bool {
	if doc != nil {
		if uid, ok := common.GetUserID(ctx); ok && uid == doc.OwnerID {
			return true
		}
	}
	return p.CanAdminister(ctx, hubKey)
}

func (RolePermissions) CanAdminister(ctx context.Context, _ string) bool {
	switch common.GetHubRole(ctx) {
	case RoleOwner, RoleAdmin:
		return true
	}
	return false
}

// Package models defines server-side data models persisted in the database.
package models

// Permission is the effective access level a user holds on a resource.
// Share rows only ever store view or edit; owner and none are computed.
type Permission string

const (
	PermissionNone  Permission = "none"
	PermissionView  Permission = "view"
	PermissionEdit  Permission = "edit"
	PermissionOwner Permission = "owner"
)

// Valid reports whether p is a permission level a share row may carry.
func (p Permission) Valid() bool {
	return p == PermissionView || p == PermissionEdit
}

// CanEdit reports whether p allows mutating the resource.
func (p Permission) CanEdit() bool {
	return p == PermissionEdit || p == PermissionOwner
}

// CanView reports whether p allows reading the resource.
func (p Permission) CanView() bool {
	return p == PermissionView || p == PermissionEdit || p == PermissionOwner
}

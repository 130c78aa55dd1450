// Package rbac provides role and permission models plus the membership
// based permission evaluator.
package rbac

import (
	"strings"
	"time"
)

// Permission is a dotted action identifier, e.g. "item.delete".
type Permission string

const (
	PermTeamCreate       Permission = "team.create"
	PermTeamAddMember    Permission = "team.add_member"
	PermTeamRemoveMember Permission = "team.remove_member"
	PermTeamView         Permission = "team.view"
	PermTeamDelete       Permission = "team.delete"

	PermUserInvite      Permission = "user.invite"
	PermUserDelete      Permission = "user.delete"
	PermUserAssignRoles Permission = "user.assign_roles"

	PermRoleAdd    Permission = "role.add"
	PermRoleModify Permission = "role.modify"
	PermRoleRemove Permission = "role.remove"
	PermRoleView   Permission = "role.view"

	PermItemCreate Permission = "item.create"
	PermItemView   Permission = "item.view"
	PermItemUpdate Permission = "item.update"
	PermItemDelete Permission = "item.delete"
	PermItemReset  Permission = "item.reset"

	PermReportsCreate Permission = "reports.create"
	PermReportsView   Permission = "reports.view"
	PermReportsDelete Permission = "reports.delete"
)

// Role is a named permission set. ID is the upper-cased name.
type Role struct {
	ID          string
	Name        string
	Description string
	Permissions []Permission
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Membership ties a subject to a scope under a role.
type Membership struct {
	ScopeID   string
	SubjectID string
	RoleID    string
	AddedAt   time.Time
}

// RoleIDFromName normalizes a role name or label into the stored role id.
func RoleIDFromName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// DefaultRoleLabel is assigned to principals created by reconciliation.
const DefaultRoleLabel = "User"

// DefaultRoles are created at startup and protected from mutation.
var DefaultRoles = []Role{
	{
		ID:          "OWNER",
		Name:        "Owner",
		Description: "Full administrative control over the system.",
		Permissions: []Permission{
			PermTeamCreate, PermTeamAddMember, PermTeamRemoveMember, PermTeamView, PermTeamDelete,
			PermRoleAdd, PermRoleModify, PermRoleRemove, PermRoleView,
			PermUserInvite, PermUserDelete, PermUserAssignRoles,
			PermItemCreate, PermItemUpdate, PermItemDelete, PermItemView, PermItemReset,
			PermReportsCreate, PermReportsView, PermReportsDelete,
		},
	},
	{
		ID:          "MANAGER",
		Name:        "Manager",
		Description: "Manage members, items, and reports.",
		Permissions: []Permission{
			PermTeamCreate, PermTeamAddMember, PermTeamRemoveMember, PermTeamView,
			PermItemCreate, PermItemView, PermItemUpdate,
			PermReportsCreate, PermReportsView,
		},
	},
	{
		ID:          "MEMBER",
		Name:        "Member",
		Description: "Limited access to view and report items.",
		Permissions: []Permission{
			PermItemView, PermReportsCreate, PermReportsView, PermTeamView,
		},
	},
}

// ProtectedRoleIDs rejects mutation of the bootstrap roles.
var ProtectedRoleIDs = map[string]struct{}{
	"OWNER":   {},
	"MANAGER": {},
	"MEMBER":  {},
}

// IsProtectedRole reports whether the role id belongs to a default role.
func IsProtectedRole(roleID string) bool {
	_, ok := ProtectedRoleIDs[RoleIDFromName(roleID)]
	return ok
}

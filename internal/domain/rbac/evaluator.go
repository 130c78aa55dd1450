package rbac

import (
	"context"
)

// MembershipRepository defines storage operations for scope memberships.
// Lookups return (nil, nil) when no row exists.
type MembershipRepository interface {
	Get(ctx context.Context, scopeID, subjectID string) (*Membership, error)
	Put(ctx context.Context, membership *Membership) error
	Delete(ctx context.Context, scopeID, subjectID string) error
	ListByScope(ctx context.Context, scopeID string) ([]Membership, error)
}

// RoleRepository defines storage operations for roles.
// Get returns (nil, nil) when the role does not exist.
type RoleRepository interface {
	Get(ctx context.Context, roleID string) (*Role, error)
	Put(ctx context.Context, role *Role) error
	Delete(ctx context.Context, roleID string) error
	List(ctx context.Context) ([]Role, error)
}

// Decision is the outcome of a permission check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Allowed is the positive decision.
func Allowed() Decision { return Decision{Allowed: true} }

// Denied carries the reason the check failed.
func Denied(reason string) Decision { return Decision{Reason: reason} }

const (
	ReasonNotAMember = "not a member of this scope"
	reasonMissingFmt = "missing permission: "
)

// ReasonMissingPermission builds the denial reason for an absent permission.
func ReasonMissingPermission(perm Permission) string {
	return reasonMissingFmt + string(perm)
}

// Evaluator answers membership scoped permission checks. It holds no cache:
// every check re-reads the store so revocations take effect on the next
// request.
type Evaluator struct {
	members MembershipRepository
	roles   RoleRepository
}

// NewEvaluator constructs an Evaluator with required dependencies.
func NewEvaluator(members MembershipRepository, roles RoleRepository) *Evaluator {
	return &Evaluator{members: members, roles: roles}
}

// Check resolves subject -> membership -> role -> permission set and tests
// perm against it. A missing membership, role, or permission is a denial,
// not an error; only store failures surface as errors.
func (e *Evaluator) Check(ctx context.Context, subjectID, scopeID string, perm Permission) (Decision, error) {
	membership, err := e.members.Get(ctx, scopeID, subjectID)
	if err != nil {
		return Decision{}, err
	}
	if membership == nil {
		return Denied(ReasonNotAMember), nil
	}

	perms, err := e.permissionSet(ctx, membership.RoleID)
	if err != nil {
		return Decision{}, err
	}
	if _, ok := perms[perm]; !ok {
		return Denied(ReasonMissingPermission(perm)), nil
	}
	return Allowed(), nil
}

// PermissionsForRole returns the permission set attached to a role name or
// label. An unknown role yields an empty set.
func (e *Evaluator) PermissionsForRole(ctx context.Context, roleLabel string) ([]Permission, error) {
	role, err := e.roles.Get(ctx, RoleIDFromName(roleLabel))
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, nil
	}
	return role.Permissions, nil
}

func (e *Evaluator) permissionSet(ctx context.Context, roleID string) (map[Permission]struct{}, error) {
	role, err := e.roles.Get(ctx, RoleIDFromName(roleID))
	if err != nil {
		return nil, err
	}

	set := map[Permission]struct{}{}
	if role == nil {
		return set, nil
	}
	for _, perm := range role.Permissions {
		set[perm] = struct{}{}
	}
	return set, nil
}

package rbac

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldstock/inventory-api/internal/utils/platformerrors"
)

// Admin is the mutation boundary for roles. The protected-role policy is
// enforced here so every caller path gets it.
type Admin struct {
	roles  RoleRepository
	logger zerolog.Logger
}

// NewAdmin constructs an Admin with required dependencies.
func NewAdmin(roles RoleRepository, logger zerolog.Logger) *Admin {
	return &Admin{
		roles:  roles,
		logger: logger.With().Str("component", "rbac-admin").Logger(),
	}
}

// RoleChanges carries the mutable role fields for Update. Nil means keep.
type RoleChanges struct {
	Name        *string
	Description *string
	Permissions []Permission
}

// List returns all roles.
func (a *Admin) List(ctx context.Context) ([]Role, error) {
	return a.roles.List(ctx)
}

// Get returns one role by name or id.
func (a *Admin) Get(ctx context.Context, name string) (*Role, error) {
	role, err := a.roles.Get(ctx, RoleIDFromName(name))
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
			fmt.Sprintf("role %q not found", name), nil, "")
	}
	return role, nil
}

// Create stores a new role, rejecting duplicates.
func (a *Admin) Create(ctx context.Context, name, description string, permissions []Permission) (*Role, error) {
	roleID := RoleIDFromName(name)
	if roleID == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"role name must not be empty", nil, "")
	}

	existing, err := a.roles.Get(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict,
			fmt.Sprintf("role %q already exists", name), nil, "")
	}

	now := time.Now().UTC()
	role := &Role{
		ID:          roleID,
		Name:        name,
		Description: description,
		Permissions: permissions,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.roles.Put(ctx, role); err != nil {
		return nil, err
	}

	a.logger.Info().Str("role_id", roleID).Msg("role created")
	return role, nil
}

// Update applies changes to an existing, non-default role.
func (a *Admin) Update(ctx context.Context, name string, changes RoleChanges) (*Role, error) {
	roleID := RoleIDFromName(name)
	role, err := a.roles.Get(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
			fmt.Sprintf("role %q not found", name), nil, "")
	}
	if IsProtectedRole(roleID) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden,
			"cannot modify default roles", nil, "")
	}

	if changes.Name != nil {
		role.Name = *changes.Name
	}
	if changes.Description != nil {
		role.Description = *changes.Description
	}
	if changes.Permissions != nil {
		role.Permissions = changes.Permissions
	}
	role.UpdatedAt = time.Now().UTC()

	if err := a.roles.Put(ctx, role); err != nil {
		return nil, err
	}

	a.logger.Info().Str("role_id", roleID).Msg("role updated")
	return role, nil
}

// Delete removes a non-default role.
func (a *Admin) Delete(ctx context.Context, name string) error {
	roleID := RoleIDFromName(name)
	if IsProtectedRole(roleID) {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden,
			"cannot delete default roles", nil, "")
	}

	role, err := a.roles.Get(ctx, roleID)
	if err != nil {
		return err
	}
	if role == nil {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
			fmt.Sprintf("role %q not found", name), nil, "")
	}

	if err := a.roles.Delete(ctx, roleID); err != nil {
		return err
	}

	a.logger.Info().Str("role_id", roleID).Msg("role deleted")
	return nil
}

// SeedDefaults creates the bootstrap roles that are missing. Existing roles
// are left untouched so the call is safe on every startup.
func (a *Admin) SeedDefaults(ctx context.Context) error {
	for _, def := range DefaultRoles {
		existing, err := a.roles.Get(ctx, def.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}

		role := def
		now := time.Now().UTC()
		role.CreatedAt = now
		role.UpdatedAt = now
		if err := a.roles.Put(ctx, &role); err != nil {
			return err
		}
		a.logger.Info().Str("role_id", role.ID).Msg("seeded default role")
	}
	return nil
}

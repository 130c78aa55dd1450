package rbac

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/fieldstock/inventory-api/internal/utils/platformerrors"
)

func newTestAdmin(t *testing.T) (*Admin, *fakeRoleRepo) {
	t.Helper()
	roles := newFakeRoleRepo()
	return NewAdmin(roles, zerolog.Nop()), roles
}

func TestAdminCreateAndConflict(t *testing.T) {
	admin, repo := newTestAdmin(t)
	ctx := context.Background()

	role, err := admin.Create(ctx, "Auditor", "Read only access", []Permission{PermItemView})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if role.ID != "AUDITOR" {
		t.Errorf("ID = %q, want AUDITOR", role.ID)
	}
	if role.CreatedAt.IsZero() || !role.CreatedAt.Equal(role.UpdatedAt) {
		t.Errorf("timestamps not initialized equally: %v %v", role.CreatedAt, role.UpdatedAt)
	}
	if repo.rows["AUDITOR"] == nil {
		t.Fatal("role not stored")
	}

	if _, err := admin.Create(ctx, "auditor", "", nil); !platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict) {
		t.Errorf("duplicate Create() error = %v, want CONFLICT", err)
	}
}

func TestAdminUpdateProtectedRole(t *testing.T) {
	admin, repo := newTestAdmin(t)
	ctx := context.Background()

	if err := admin.SeedDefaults(ctx); err != nil {
		t.Fatalf("SeedDefaults() error = %v", err)
	}

	name := "Renamed"
	_, err := admin.Update(ctx, "Owner", RoleChanges{Name: &name})
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeForbidden) {
		t.Fatalf("Update(Owner) error = %v, want FORBIDDEN", err)
	}
	if repo.rows["OWNER"].Name != "Owner" {
		t.Error("protected role was mutated")
	}
}

func TestAdminUpdateCustomRole(t *testing.T) {
	admin, _ := newTestAdmin(t)
	ctx := context.Background()

	if _, err := admin.Create(ctx, "Auditor", "old", []Permission{PermItemView}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	desc := "new description"
	updated, err := admin.Update(ctx, "Auditor", RoleChanges{
		Description: &desc,
		Permissions: []Permission{PermItemView, PermReportsView},
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Description != desc {
		t.Errorf("Description = %q", updated.Description)
	}
	if len(updated.Permissions) != 2 {
		t.Errorf("Permissions = %v", updated.Permissions)
	}
}

func TestAdminDelete(t *testing.T) {
	admin, repo := newTestAdmin(t)
	ctx := context.Background()

	if err := admin.SeedDefaults(ctx); err != nil {
		t.Fatalf("SeedDefaults() error = %v", err)
	}
	if _, err := admin.Create(ctx, "Auditor", "", nil); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := admin.Delete(ctx, "Member"); !platformerrors.IsErrorType(err, platformerrors.ErrorTypeForbidden) {
		t.Errorf("Delete(Member) error = %v, want FORBIDDEN", err)
	}
	if err := admin.Delete(ctx, "ghost"); !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		t.Errorf("Delete(ghost) error = %v, want NOT_FOUND", err)
	}
	if err := admin.Delete(ctx, "Auditor"); err != nil {
		t.Errorf("Delete(Auditor) error = %v", err)
	}
	if repo.rows["AUDITOR"] != nil {
		t.Error("role not removed")
	}
}

func TestSeedDefaultsIdempotent(t *testing.T) {
	admin, repo := newTestAdmin(t)
	ctx := context.Background()

	if err := admin.SeedDefaults(ctx); err != nil {
		t.Fatalf("SeedDefaults() error = %v", err)
	}
	firstPuts := repo.putOps
	if firstPuts != len(DefaultRoles) {
		t.Fatalf("putOps = %d, want %d", firstPuts, len(DefaultRoles))
	}

	if err := admin.SeedDefaults(ctx); err != nil {
		t.Fatalf("second SeedDefaults() error = %v", err)
	}
	if repo.putOps != firstPuts {
		t.Errorf("second seed wrote %d extra roles", repo.putOps-firstPuts)
	}
}

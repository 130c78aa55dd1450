// Package rolehandler exposes role administration endpoints.
package rolehandler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/fieldstock/inventory-api/internal/domain/rbac"
	"github.com/fieldstock/inventory-api/internal/interfaces/httpserver/responses"
	"github.com/fieldstock/inventory-api/internal/utils/platformerrors"
)

// RoleHandler serves the role mutation boundary.
type RoleHandler struct {
	admin  *rbac.Admin
	logger zerolog.Logger
}

// NewRoleHandler creates a new role handler.
func NewRoleHandler(admin *rbac.Admin, logger zerolog.Logger) *RoleHandler {
	return &RoleHandler{
		admin:  admin,
		logger: logger.With().Str("component", "role-handler").Logger(),
	}
}

// RoleResponse is the API shape of a role.
type RoleResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions"`
	Protected   bool     `json:"protected"`
	CreatedAt   string   `json:"createdAt,omitempty"`
	UpdatedAt   string   `json:"updatedAt,omitempty"`
}

type roleRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

type roleUpdateRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Permissions []string `json:"permissions"`
}

// List returns all roles.
func (h *RoleHandler) List(c *gin.Context) {
	roles, err := h.admin.List(c.Request.Context())
	if err != nil {
		responses.HandleError(c, err, "list roles")
		return
	}

	out := make([]RoleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, toRoleResponse(&role))
	}
	c.JSON(http.StatusOK, gin.H{"roles": out})
}

// Get returns one role by name.
func (h *RoleHandler) Get(c *gin.Context) {
	role, err := h.admin.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		responses.HandleError(c, err, "get role")
		return
	}
	c.JSON(http.StatusOK, toRoleResponse(role))
}

// Create stores a new role.
func (h *RoleHandler) Create(c *gin.Context) {
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "role name is required", "")
		return
	}

	role, err := h.admin.Create(c.Request.Context(), req.Name, req.Description, toPermissions(req.Permissions))
	if err != nil {
		responses.HandleError(c, err, "create role")
		return
	}
	c.JSON(http.StatusCreated, toRoleResponse(role))
}

// Update mutates a non-default role.
func (h *RoleHandler) Update(c *gin.Context) {
	var req roleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid role payload", "")
		return
	}

	changes := rbac.RoleChanges{
		Name:        req.Name,
		Description: req.Description,
	}
	if req.Permissions != nil {
		changes.Permissions = toPermissions(req.Permissions)
	}

	role, err := h.admin.Update(c.Request.Context(), c.Param("name"), changes)
	if err != nil {
		responses.HandleError(c, err, "update role")
		return
	}
	c.JSON(http.StatusOK, toRoleResponse(role))
}

// Delete removes a non-default role.
func (h *RoleHandler) Delete(c *gin.Context) {
	if err := h.admin.Delete(c.Request.Context(), c.Param("name")); err != nil {
		responses.HandleError(c, err, "delete role")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func toRoleResponse(role *rbac.Role) RoleResponse {
	perms := make([]string, 0, len(role.Permissions))
	for _, perm := range role.Permissions {
		perms = append(perms, string(perm))
	}

	resp := RoleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		Permissions: perms,
		Protected:   rbac.IsProtectedRole(role.ID),
	}
	if !role.CreatedAt.IsZero() {
		resp.CreatedAt = role.CreatedAt.Format(time.RFC3339)
	}
	if !role.UpdatedAt.IsZero() {
		resp.UpdatedAt = role.UpdatedAt.Format(time.RFC3339)
	}
	return resp
}

func toPermissions(raw []string) []rbac.Permission {
	perms := make([]rbac.Permission, 0, len(raw))
	for _, p := range raw {
		perms = append(perms, rbac.Permission(p))
	}
	return perms
}

// Package v1 wires the versioned API routes.
package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/fieldstock/inventory-api/internal/domain/rbac"
	"github.com/fieldstock/inventory-api/internal/interfaces/httpserver/handlers/authhandler"
	"github.com/fieldstock/inventory-api/internal/interfaces/httpserver/handlers/rolehandler"
	"github.com/fieldstock/inventory-api/internal/interfaces/httpserver/handlers/teamhandler"
	"github.com/fieldstock/inventory-api/internal/interfaces/httpserver/middlewares"
)

// Routes groups the API handlers with the session gate.
type Routes struct {
	tokens *authhandler.TokenHandler
	roles  *rolehandler.RoleHandler
	teams  *teamhandler.TeamHandler
	gate   gin.HandlerFunc
}

// NewRoutes constructs the route provider.
func NewRoutes(
	tokens *authhandler.TokenHandler,
	roles *rolehandler.RoleHandler,
	teams *teamhandler.TeamHandler,
	gate gin.HandlerFunc,
) *Routes {
	return &Routes{tokens: tokens, roles: roles, teams: teams, gate: gate}
}

// Register attaches all routes to the group.
func (r *Routes) Register(router *gin.RouterGroup) {
	auth := router.Group("/auth")
	{
		// Sign-in and refresh establish sessions, so they sit outside
		// the gate.
		auth.POST("/signin", r.tokens.SignIn)
		auth.POST("/refresh", r.tokens.Refresh)

		protected := auth.Group("", r.gate)
		protected.GET("/me", r.tokens.Me)
		protected.POST("/logout", r.tokens.Logout)
	}

	roles := router.Group("/roles", r.gate)
	{
		roles.GET("", middlewares.RequirePermission(rbac.PermRoleView), r.roles.List)
		roles.GET("/:name", middlewares.RequirePermission(rbac.PermRoleView), r.roles.Get)
		roles.POST("", middlewares.RequirePermission(rbac.PermRoleAdd), r.roles.Create)
		roles.PATCH("/:name", middlewares.RequirePermission(rbac.PermRoleModify), r.roles.Update)
		roles.DELETE("/:name", middlewares.RequirePermission(rbac.PermRoleRemove), r.roles.Delete)
	}

	teams := router.Group("/teams", r.gate)
	{
		// Membership routes do their own scope-specific checks inside
		// the handler; the gate only guarantees a session.
		teams.GET("/:id/members", r.teams.ListMembers)
		teams.POST("/:id/members", r.teams.AddMember)
		teams.DELETE("/:id/members/:userId", r.teams.RemoveMember)
	}
}

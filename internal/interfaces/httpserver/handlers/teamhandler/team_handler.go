// Package teamhandler exposes team membership endpoints gated by
// scope-specific permission checks.
package teamhandler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/fieldstock/inventory-api/internal/domain/rbac"
	"github.com/fieldstock/inventory-api/internal/infrastructure/metrics"
	"github.com/fieldstock/inventory-api/internal/interfaces/httpserver/middlewares"
	"github.com/fieldstock/inventory-api/internal/interfaces/httpserver/responses"
	"github.com/fieldstock/inventory-api/internal/utils/platformerrors"
)

// PermissionChecker answers membership scoped permission checks.
type PermissionChecker interface {
	Check(ctx context.Context, subjectID, scopeID string, perm rbac.Permission) (rbac.Decision, error)
}

// TeamHandler serves membership mutations within a team scope.
type TeamHandler struct {
	members rbac.MembershipRepository
	checker PermissionChecker
	logger  zerolog.Logger
}

// NewTeamHandler creates a new team handler.
func NewTeamHandler(members rbac.MembershipRepository, checker PermissionChecker, logger zerolog.Logger) *TeamHandler {
	return &TeamHandler{
		members: members,
		checker: checker,
		logger:  logger.With().Str("component", "team-handler").Logger(),
	}
}

// MemberResponse is the API shape of a membership row.
type MemberResponse struct {
	SubjectID string `json:"userId"`
	RoleID    string `json:"role"`
	AddedAt   string `json:"addedAt,omitempty"`
}

type addMemberRequest struct {
	SubjectID string `json:"userId" binding:"required"`
	Role      string `json:"role" binding:"required"`
}

// requireScoped runs the per-scope check for the calling subject. Unlike
// the globally attached set, this consults the caller's membership in the
// requested team.
func (h *TeamHandler) requireScoped(c *gin.Context, scopeID string, perm rbac.Permission) bool {
	sess, ok := middlewares.SessionFromContext(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "no session", "")
		return false
	}

	decision, err := h.checker.Check(c.Request.Context(), sess.SubjectID, scopeID, perm)
	if err != nil {
		responses.HandleError(c, platformerrors.AsError(c.Request.Context(), platformerrors.LayerHandler, err, "check permission"), "internal error")
		return false
	}
	if !decision.Allowed {
		metrics.RecordPermissionCheck(string(perm), "denied")
		responses.HandleNewError(c, platformerrors.ErrorTypeForbidden, decision.Reason, "")
		return false
	}
	metrics.RecordPermissionCheck(string(perm), "allowed")
	return true
}

// ListMembers returns the memberships of a team.
func (h *TeamHandler) ListMembers(c *gin.Context) {
	teamID := c.Param("id")
	if !h.requireScoped(c, teamID, rbac.PermTeamView) {
		return
	}

	memberships, err := h.members.ListByScope(c.Request.Context(), teamID)
	if err != nil {
		responses.HandleError(c, platformerrors.AsError(c.Request.Context(), platformerrors.LayerHandler, err, "list members"), "internal error")
		return
	}

	out := make([]MemberResponse, 0, len(memberships))
	for _, m := range memberships {
		resp := MemberResponse{SubjectID: m.SubjectID, RoleID: m.RoleID}
		if !m.AddedAt.IsZero() {
			resp.AddedAt = m.AddedAt.Format(time.RFC3339)
		}
		out = append(out, resp)
	}
	c.JSON(http.StatusOK, gin.H{"members": out})
}

// AddMember writes a membership row for the team.
func (h *TeamHandler) AddMember(c *gin.Context) {
	teamID := c.Param("id")
	if !h.requireScoped(c, teamID, rbac.PermTeamAddMember) {
		return
	}

	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "userId and role are required", "")
		return
	}

	membership := &rbac.Membership{
		ScopeID:   teamID,
		SubjectID: req.SubjectID,
		RoleID:    rbac.RoleIDFromName(req.Role),
		AddedAt:   time.Now().UTC(),
	}
	if err := h.members.Put(c.Request.Context(), membership); err != nil {
		responses.HandleError(c, platformerrors.AsError(c.Request.Context(), platformerrors.LayerHandler, err, "add member"), "internal error")
		return
	}

	h.logger.Info().Str("team_id", teamID).Str("subject_id", req.SubjectID).Msg("member added")
	c.JSON(http.StatusCreated, gin.H{"success": true})
}

// RemoveMember deletes a membership row.
func (h *TeamHandler) RemoveMember(c *gin.Context) {
	teamID := c.Param("id")
	if !h.requireScoped(c, teamID, rbac.PermTeamRemoveMember) {
		return
	}

	subjectID := c.Param("userId")
	if err := h.members.Delete(c.Request.Context(), teamID, subjectID); err != nil {
		responses.HandleError(c, platformerrors.AsError(c.Request.Context(), platformerrors.LayerHandler, err, "remove member"), "internal error")
		return
	}

	h.logger.Info().Str("team_id", teamID).Str("subject_id", subjectID).Msg("member removed")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

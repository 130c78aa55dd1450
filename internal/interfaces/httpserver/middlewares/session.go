package middlewares

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/fieldstock/inventory-api/internal/domain/principal"
	"github.com/fieldstock/inventory-api/internal/domain/rbac"
	"github.com/fieldstock/inventory-api/internal/infrastructure/auth"
	"github.com/fieldstock/inventory-api/internal/infrastructure/metrics"
	"github.com/fieldstock/inventory-api/internal/interfaces/httpserver/responses"
	"github.com/fieldstock/inventory-api/internal/interfaces/httpserver/session"
	"github.com/fieldstock/inventory-api/internal/utils/platformerrors"
)

const sessionContextKey = "authSession"

// Session is the immutable per-request identity attached by the gate.
type Session struct {
	SubjectID   string
	Username    string
	Permissions []rbac.Permission
}

// HasPermission tests the globally attached permission set.
func (s Session) HasPermission(perm rbac.Permission) bool {
	for _, p := range s.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// TokenVerifier validates raw access tokens.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*auth.Claims, error)
}

// PrincipalEnsurer reconciles a subject into a store record.
type PrincipalEnsurer interface {
	Ensure(ctx context.Context, subjectID string) (*principal.Principal, error)
}

// PermissionSource resolves a role label to its permission set.
type PermissionSource interface {
	PermissionsForRole(ctx context.Context, roleLabel string) ([]rbac.Permission, error)
}

// SessionGate extracts the access cookie, verifies it, reconciles the
// principal, and attaches the session. A fresh Session value is built per
// request; nothing is shared across requests.
func SessionGate(
	verifier TokenVerifier,
	reconciler PrincipalEnsurer,
	permissions PermissionSource,
	logger zerolog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		transport := session.TransportFromGin(c)
		cookies := session.ParseCookieHeader(transport.CookieHeader())

		accessToken := cookies[session.AccessCookieName]
		if accessToken == "" {
			metrics.RecordAuthOutcome("no_token")
			responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "no access token", "")
			return
		}

		claims, err := verifier.Verify(c.Request.Context(), accessToken)
		if err != nil {
			metrics.RecordAuthOutcome("invalid_token")
			logger.Warn().Err(err).Str("path", c.FullPath()).Msg("access token rejected")
			responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "invalid or expired token: "+err.Error(), "")
			return
		}

		record, err := reconciler.Ensure(c.Request.Context(), claims.Subject)
		if err != nil {
			metrics.RecordAuthOutcome("reconcile_error")
			logger.Error().Err(err).Str("subject_id", claims.Subject).Msg("principal reconciliation failed")
			responses.HandleError(c, platformerrors.AsError(c.Request.Context(), platformerrors.LayerHandler, err, "reconcile principal"), "internal error")
			return
		}

		perms, err := permissions.PermissionsForRole(c.Request.Context(), record.RoleLabel)
		if err != nil {
			metrics.RecordAuthOutcome("permission_error")
			logger.Error().Err(err).Str("subject_id", claims.Subject).Msg("permission lookup failed")
			responses.HandleError(c, platformerrors.AsError(c.Request.Context(), platformerrors.LayerHandler, err, "load permissions"), "internal error")
			return
		}

		metrics.RecordAuthOutcome("ok")
		c.Set(sessionContextKey, Session{
			SubjectID:   claims.Subject,
			Username:    record.Username,
			Permissions: perms,
		})
		c.Next()
	}
}

// RequirePermission composes on top of SessionGate and rejects requests
// whose attached set lacks the permission.
func RequirePermission(perm rbac.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := SessionFromContext(c)
		if !ok {
			responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "no session", "")
			return
		}
		if !sess.HasPermission(perm) {
			metrics.RecordPermissionCheck(string(perm), "denied")
			responses.HandleNewError(c, platformerrors.ErrorTypeForbidden, rbac.ReasonMissingPermission(perm), "")
			return
		}
		metrics.RecordPermissionCheck(string(perm), "allowed")
		c.Next()
	}
}

// SessionFromContext returns the attached session, if any.
func SessionFromContext(c *gin.Context) (Session, bool) {
	val, ok := c.Get(sessionContextKey)
	if !ok {
		return Session{}, false
	}
	sess, ok := val.(Session)
	return sess, ok
}

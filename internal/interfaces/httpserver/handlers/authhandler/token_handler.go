// Package authhandler exposes the session endpoints: sign-in, refresh,
// me, and logout.
package authhandler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/fieldstock/inventory-api/internal/domain/principal"
	"github.com/fieldstock/inventory-api/internal/infrastructure/cognito"
	"github.com/fieldstock/inventory-api/internal/interfaces/httpserver/middlewares"
	"github.com/fieldstock/inventory-api/internal/interfaces/httpserver/responses"
	"github.com/fieldstock/inventory-api/internal/interfaces/httpserver/session"
	"github.com/fieldstock/inventory-api/internal/utils/platformerrors"
)

// TokenIssuer exchanges credentials and refresh tokens for token sets.
type TokenIssuer interface {
	Refresh(ctx context.Context, refreshToken string) (*cognito.TokenSet, error)
	SignIn(ctx context.Context, username, password string) (*cognito.SignInResult, error)
}

// PrincipalEnsurer reconciles a subject into a store record.
type PrincipalEnsurer interface {
	Ensure(ctx context.Context, subjectID string) (*principal.Principal, error)
}

// TokenHandler handles token-related operations (sign-in, refresh, logout).
type TokenHandler struct {
	issuer     TokenIssuer
	reconciler PrincipalEnsurer
	codec      session.Codec
	logger     zerolog.Logger
}

// NewTokenHandler creates a new token handler.
func NewTokenHandler(issuer TokenIssuer, reconciler PrincipalEnsurer, codec session.Codec, logger zerolog.Logger) *TokenHandler {
	return &TokenHandler{
		issuer:     issuer,
		reconciler: reconciler,
		codec:      codec,
		logger:     logger.With().Str("component", "auth-handler").Logger(),
	}
}

// RefreshResponse is the uniform refresh result. Failed exchanges are
// ordinary responses with Refreshed=false, never error statuses.
type RefreshResponse struct {
	Refreshed bool   `json:"refreshed"`
	Message   string `json:"message,omitempty"`
	UserID    string `json:"userId,omitempty"`
	Username  string `json:"username,omitempty"`
	AccountID string `json:"accountId,omitempty"`
	ExpiresIn int    `json:"expiresIn,omitempty"`
}

// Refresh exchanges the refresh cookie for new access tokens and rotates
// the session cookies.
func (h *TokenHandler) Refresh(c *gin.Context) {
	transport := session.TransportFromGin(c)
	cookies := session.ParseCookieHeader(transport.CookieHeader())

	refreshToken := cookies[session.RefreshCookieName]
	if refreshToken == "" {
		c.JSON(http.StatusOK, RefreshResponse{Message: "no refresh token"})
		return
	}

	tokens, err := h.issuer.Refresh(c.Request.Context(), refreshToken)
	if err != nil || tokens == nil {
		h.logger.Warn().Err(err).Msg("refresh exchange failed")
		c.JSON(http.StatusOK, RefreshResponse{Message: "token refresh failed"})
		return
	}

	// The provider reuses the refresh token unless rotation is enabled;
	// only emit the cookie when a new one actually arrived.
	transport.EmitCookies(h.codec.BuildSetCookies(session.Tokens{
		Access:    tokens.AccessToken,
		ID:        tokens.IDToken,
		Refresh:   tokens.RefreshToken,
		ExpiresIn: &tokens.ExpiresIn,
	}))

	subject := session.UnverifiedSubject(deref(tokens.IDToken), deref(tokens.AccessToken))
	if subject == "" {
		c.JSON(http.StatusOK, RefreshResponse{Message: "missing subject"})
		return
	}

	record, err := h.reconciler.Ensure(c.Request.Context(), subject)
	if err != nil {
		responses.HandleError(c, platformerrors.AsError(c.Request.Context(), platformerrors.LayerHandler, err, "reconcile principal"), "internal error")
		return
	}

	c.JSON(http.StatusOK, RefreshResponse{
		Refreshed: true,
		UserID:    record.SubjectID,
		Username:  record.Username,
		AccountID: record.AccountID,
		ExpiresIn: tokens.ExpiresIn,
	})
}

// MeResponse combines the session identity with the stored record.
type MeResponse struct {
	principal.Summary
	Permissions []string `json:"permissions"`
}

// Me returns the current authenticated user's information.
func (h *TokenHandler) Me(c *gin.Context) {
	sess, ok := middlewares.SessionFromContext(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, "no session", "")
		return
	}

	record, err := h.reconciler.Ensure(c.Request.Context(), sess.SubjectID)
	if err != nil {
		responses.HandleError(c, platformerrors.AsError(c.Request.Context(), platformerrors.LayerHandler, err, "load principal"), "internal error")
		return
	}

	perms := make([]string, 0, len(sess.Permissions))
	for _, perm := range sess.Permissions {
		perms = append(perms, string(perm))
	}

	c.JSON(http.StatusOK, MeResponse{
		Summary:     record.Summary(),
		Permissions: perms,
	})
}

// Logout clears the session cookies through the active transport.
func (h *TokenHandler) Logout(c *gin.Context) {
	transport := session.TransportFromGin(c)
	transport.EmitCookies(h.codec.BuildClearCookies())
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

package authhandler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldstock/inventory-api/internal/interfaces/httpserver/responses"
	"github.com/fieldstock/inventory-api/internal/interfaces/httpserver/session"
	"github.com/fieldstock/inventory-api/internal/utils/platformerrors"
)

// SignInRequest carries the password flow credentials.
type SignInRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SignInResponse is either a started session or a pending challenge.
type SignInResponse struct {
	Success       bool   `json:"success"`
	ChallengeName string `json:"challengeName,omitempty"`
	Session       string `json:"session,omitempty"`
	ExpiresIn     int    `json:"expiresIn,omitempty"`
}

// SignIn runs the password flow and establishes the cookie session.
func (h *TokenHandler) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "username and password are required", "")
		return
	}

	result, err := h.issuer.SignIn(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.Warn().Err(err).Str("username", req.Username).Msg("sign-in failed")
		responses.HandleError(c, err, "sign-in failed")
		return
	}

	// Challenges (e.g. NEW_PASSWORD_REQUIRED) pass through for the client
	// to complete; no cookies are set yet.
	if result.Tokens == nil {
		c.JSON(http.StatusOK, SignInResponse{
			ChallengeName: result.ChallengeName,
			Session:       result.Session,
		})
		return
	}

	transport := session.TransportFromGin(c)
	transport.EmitCookies(h.codec.BuildSetCookies(session.Tokens{
		Access:    result.Tokens.AccessToken,
		ID:        result.Tokens.IDToken,
		Refresh:   result.Tokens.RefreshToken,
		ExpiresIn: &result.Tokens.ExpiresIn,
	}))

	c.JSON(http.StatusOK, SignInResponse{
		Success:   true,
		ExpiresIn: result.Tokens.ExpiresIn,
	})
}

// Package session owns the auth cookie contract shared by the HTTP server
// and the Lambda entrypoint: cookie emission and parsing, plus the
// display-only unverified token decode.
package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Cookie names shared with the frontend.
const (
	AccessCookieName  = "auth_access"
	IDCookieName      = "auth_id"
	RefreshCookieName = "auth_refresh"
)

const (
	defaultAccessTTL = 3600
	refreshTTL       = 24 * 60 * 60
)

// Tokens carries the token material to surface as cookies. Nil fields are
// skipped so a refresh that returns no new refresh token leaves the
// existing cookie untouched.
type Tokens struct {
	Access    *string
	ID        *string
	Refresh   *string
	ExpiresIn *int
}

// Codec builds and parses auth cookies. CrossSite selects the attribute set
// for deployments where the frontend runs on another origin.
type Codec struct {
	CrossSite bool
}

// BuildSetCookies returns one serialized Set-Cookie header per present token.
func (c Codec) BuildSetCookies(tokens Tokens) []string {
	accessTTL := defaultAccessTTL
	if tokens.ExpiresIn != nil && *tokens.ExpiresIn > 0 {
		accessTTL = *tokens.ExpiresIn
	}

	var out []string
	if tokens.Access != nil {
		out = append(out, c.newCookie(AccessCookieName, *tokens.Access, accessTTL).String())
	}
	if tokens.ID != nil {
		out = append(out, c.newCookie(IDCookieName, *tokens.ID, accessTTL).String())
	}
	if tokens.Refresh != nil {
		out = append(out, c.newCookie(RefreshCookieName, *tokens.Refresh, refreshTTL).String())
	}
	return out
}

// BuildClearCookies returns expired cookies for all three names.
func (c Codec) BuildClearCookies() []string {
	names := []string{AccessCookieName, IDCookieName, RefreshCookieName}
	out := make([]string, 0, len(names))
	for _, name := range names {
		cookie := c.newCookie(name, "", 0)
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
		out = append(out, cookie.String())
	}
	return out
}

func (c Codec) newCookie(name, value string, maxAge int) *http.Cookie {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
	}
	if c.CrossSite {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteNoneMode
	} else {
		cookie.SameSite = http.SameSiteLaxMode
	}
	return cookie
}

// ParseCookieHeader splits a Cookie header into name/value pairs. Malformed
// fragments are skipped rather than rejected; junk input yields an empty map.
func ParseCookieHeader(header string) map[string]string {
	out := map[string]string{}
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, found := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if !found || name == "" {
			continue
		}
		out[name] = strings.Trim(strings.TrimSpace(value), `"`)
	}
	return out
}

// DecodeUnverified extracts the claims of a JWT without any signature or
// claim validation. Display-only: the result must never gate authorization.
// Returns nil for anything that is not a structurally valid JWT.
func DecodeUnverified(rawToken string) map[string]any {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(rawToken, claims); err != nil {
		return nil
	}
	return claims
}

// UnverifiedSubject returns the first sub claim found across the given
// tokens, or "" when none decodes.
func UnverifiedSubject(rawTokens ...string) string {
	for _, raw := range rawTokens {
		if raw == "" {
			continue
		}
		claims := DecodeUnverified(raw)
		if claims == nil {
			continue
		}
		if sub, ok := claims["sub"].(string); ok && sub != "" {
			return sub
		}
	}
	return ""
}

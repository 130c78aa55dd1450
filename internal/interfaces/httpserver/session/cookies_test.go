package session

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestBuildSetCookiesAllTokens(t *testing.T) {
	codec := Codec{}
	cookies := codec.BuildSetCookies(Tokens{
		Access:    strPtr("acc"),
		ID:        strPtr("idt"),
		Refresh:   strPtr("ref"),
		ExpiresIn: intPtr(1800),
	})

	if len(cookies) != 3 {
		t.Fatalf("got %d cookies, want 3", len(cookies))
	}
	if !strings.HasPrefix(cookies[0], AccessCookieName+"=acc") {
		t.Errorf("access cookie = %q", cookies[0])
	}
	if !strings.Contains(cookies[0], "Max-Age=1800") {
		t.Errorf("access cookie should honor ExpiresIn: %q", cookies[0])
	}
	if !strings.Contains(cookies[2], "Max-Age=86400") {
		t.Errorf("refresh cookie should always use 24h: %q", cookies[2])
	}
	for _, cookie := range cookies {
		if !strings.Contains(cookie, "HttpOnly") {
			t.Errorf("cookie missing HttpOnly: %q", cookie)
		}
		if !strings.Contains(cookie, "Path=/") {
			t.Errorf("cookie missing Path=/: %q", cookie)
		}
		if !strings.Contains(cookie, "SameSite=Lax") {
			t.Errorf("same-site deployment should use Lax: %q", cookie)
		}
		if strings.Contains(cookie, "Secure") {
			t.Errorf("same-site deployment should not set Secure: %q", cookie)
		}
	}
}

func TestBuildSetCookiesSkipsAbsentTokens(t *testing.T) {
	codec := Codec{}
	cookies := codec.BuildSetCookies(Tokens{Access: strPtr("acc"), ID: strPtr("idt")})

	if len(cookies) != 2 {
		t.Fatalf("got %d cookies, want 2", len(cookies))
	}
	for _, cookie := range cookies {
		if strings.HasPrefix(cookie, RefreshCookieName+"=") {
			t.Errorf("refresh cookie should not be emitted: %q", cookie)
		}
		if !strings.Contains(cookie, "Max-Age=3600") {
			t.Errorf("cookie should fall back to default TTL: %q", cookie)
		}
	}
}

func TestBuildSetCookiesCrossSite(t *testing.T) {
	codec := Codec{CrossSite: true}
	cookies := codec.BuildSetCookies(Tokens{Access: strPtr("acc")})

	if len(cookies) != 1 {
		t.Fatalf("got %d cookies, want 1", len(cookies))
	}
	if !strings.Contains(cookies[0], "SameSite=None") {
		t.Errorf("cross-site cookie should use SameSite=None: %q", cookies[0])
	}
	if !strings.Contains(cookies[0], "Secure") {
		t.Errorf("cross-site cookie should be Secure: %q", cookies[0])
	}
}

func TestBuildClearCookies(t *testing.T) {
	cookies := Codec{}.BuildClearCookies()
	if len(cookies) != 3 {
		t.Fatalf("got %d cookies, want 3", len(cookies))
	}
	for _, cookie := range cookies {
		if !strings.Contains(cookie, "Max-Age=0") {
			t.Errorf("clear cookie missing Max-Age=0: %q", cookie)
		}
		if !strings.Contains(cookie, "Expires=Thu, 01 Jan 1970") {
			t.Errorf("clear cookie missing epoch expiry: %q", cookie)
		}
	}
}

func TestEmitThenParseRoundTrip(t *testing.T) {
	cookies := Codec{}.BuildSetCookies(Tokens{
		Access:  strPtr("acc-token"),
		ID:      strPtr("id-token"),
		Refresh: strPtr("ref-token"),
	})

	// A client echoes the name=value pairs back in one Cookie header.
	pairs := make([]string, 0, len(cookies))
	for _, cookie := range cookies {
		pairs = append(pairs, strings.SplitN(cookie, ";", 2)[0])
	}
	parsed := ParseCookieHeader(strings.Join(pairs, "; "))

	want := map[string]string{
		AccessCookieName:  "acc-token",
		IDCookieName:      "id-token",
		RefreshCookieName: "ref-token",
	}
	for name, value := range want {
		if parsed[name] != value {
			t.Errorf("parsed[%s] = %q, want %q", name, parsed[name], value)
		}
	}
}

func TestParseCookieHeader(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   map[string]string
	}{
		{name: "empty", header: "", want: map[string]string{}},
		{name: "junk", header: ";;;=;; garbage ;", want: map[string]string{}},
		{
			name:   "normal",
			header: "a=1; b=2",
			want:   map[string]string{"a": "1", "b": "2"},
		},
		{
			name:   "quoted and spaced",
			header: ` a = "1" ;b=2`,
			want:   map[string]string{"a": "1", "b": "2"},
		},
		{
			name:   "value with equals",
			header: "tok=abc=def",
			want:   map[string]string{"tok": "abc=def"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCookieHeader(tt.header)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("got[%s] = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func unsignedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("build token: %v", err)
	}
	return raw
}

func TestDecodeUnverified(t *testing.T) {
	valid := unsignedToken(t, jwt.MapClaims{"sub": "user-1", "email": "a@b.c"})

	badPayload := strings.SplitN(valid, ".", 3)
	notJSON := badPayload[0] + "." + base64.RawURLEncoding.EncodeToString([]byte("not json")) + "." + badPayload[2]

	tests := []struct {
		name    string
		token   string
		wantNil bool
		wantSub string
	}{
		{name: "valid token", token: valid, wantSub: "user-1"},
		{name: "wrong part count", token: "onlyonepart", wantNil: true},
		{name: "two parts", token: "a.b", wantNil: true},
		{name: "bad base64", token: "!!!.###.$$$", wantNil: true},
		{name: "payload not json", token: notJSON, wantNil: true},
		{name: "empty", token: "", wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := DecodeUnverified(tt.token)
			if tt.wantNil {
				if claims != nil {
					t.Fatalf("DecodeUnverified() = %v, want nil", claims)
				}
				return
			}
			if claims == nil {
				t.Fatal("DecodeUnverified() = nil, want claims")
			}
			if sub, _ := claims["sub"].(string); sub != tt.wantSub {
				t.Errorf("sub = %q, want %q", sub, tt.wantSub)
			}
		})
	}
}

func TestDecodeUnverifiedIgnoresExpiry(t *testing.T) {
	expired := unsignedToken(t, jwt.MapClaims{"sub": "user-2", "exp": 1})
	claims := DecodeUnverified(expired)
	if claims == nil {
		t.Fatal("expired token should still decode")
	}
	if sub, _ := claims["sub"].(string); sub != "user-2" {
		t.Errorf("sub = %q, want user-2", sub)
	}
}

func TestUnverifiedSubject(t *testing.T) {
	withSub := unsignedToken(t, jwt.MapClaims{"sub": "subject-9"})
	noSub := unsignedToken(t, jwt.MapClaims{"email": "x@y.z"})

	if got := UnverifiedSubject("garbage", withSub); got != "subject-9" {
		t.Errorf("UnverifiedSubject() = %q, want subject-9", got)
	}
	if got := UnverifiedSubject(noSub, withSub); got != "subject-9" {
		t.Errorf("UnverifiedSubject() should skip tokens without sub, got %q", got)
	}
	if got := UnverifiedSubject("", "garbage"); got != "" {
		t.Errorf("UnverifiedSubject() = %q, want empty", got)
	}
}

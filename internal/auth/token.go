package auth

import (
	"net/http"
	"strings"
)

// AccessTokenCookie is set by the auth provider for browser sessions.
const AccessTokenCookie = "access_token"

// ExtractAccessToken reads the session cookie first and falls back to a
// Bearer Authorization header.
func ExtractAccessToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		if v := strings.TrimSpace(cookie.Value); v != "" {
			return v
		}
	}

	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

package http

import (
	"net/http"
	"time"

	"github.com/utafrali/videohub/internal/domain"
)

// Session cookie names.
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// CookieConfig controls the session cookies.
type CookieConfig struct {
	Secure        bool
	Domain        string
	SameSite      http.SameSite
	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
}

func (c CookieConfig) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	sameSite := c.SameSite
	if sameSite == 0 {
		sameSite = http.SameSiteLaxMode
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: sameSite,
	}
}

func (c CookieConfig) setSession(w http.ResponseWriter, tokens domain.TokenPair) {
	http.SetCookie(w, c.cookie(AccessTokenCookie, tokens.AccessToken, c.AccessMaxAge))
	http.SetCookie(w, c.cookie(RefreshTokenCookie, tokens.RefreshToken, c.RefreshMaxAge))
}

func (c CookieConfig) clearSession(w http.ResponseWriter) {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		ck := c.cookie(name, "", 0)
		ck.MaxAge = -1
		ck.Expires = time.Unix(0, 0)
		http.SetCookie(w, ck)
	}
}

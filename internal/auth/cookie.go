package auth

import (
	"net/http"

	"github.com/gorilla/sessions"
)

// CookieName is the session cookie the client already expects
const CookieName = "jwt"

func (s *SessionIssuer) cookieOptions(maxAge int) *sessions.Options {
	return &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// SetCookie issues a session for userID and writes it as an HTTP-only cookie
func (s *SessionIssuer) SetCookie(w http.ResponseWriter, userID string) error {
	token, err := s.Issue(userID)
	if err != nil {
		return err
	}
	http.SetCookie(w, sessions.NewCookie(CookieName, token, s.cookieOptions(int(s.ttl.Seconds()))))
	return nil
}

// ClearCookie expires the session cookie in the browser
func (s *SessionIssuer) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, sessions.NewCookie(CookieName, "", s.cookieOptions(-1)))
}

// TokenFromRequest returns the session token carried by r, or "" when absent
func TokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

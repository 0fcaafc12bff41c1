package web

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
)

// The settings form uses a double-submit cookie: the page embeds the cookie
// value in a hidden field and POST /settings requires the two to match.
const (
	csrfCookieName = "actionwatch_csrf"
	csrfFormField  = "csrf_token"
)

// csrfToken returns the request's CSRF token, issuing a fresh cookie when the
// request carries none.
func csrfToken(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(csrfCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	b := make([]byte, 32)
	_, _ = rand.Read(b) // crypto/rand.Read never returns an error.
	token := hex.EncodeToString(b)

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   r.TLS != nil,
	})
	return token
}

// requireCSRF rejects form posts whose hidden token does not match the cookie.
func requireCSRF(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(csrfCookieName)
		form := r.PostFormValue(csrfFormField)
		if err != nil || c.Value == "" || form == "" ||
			subtle.ConstantTimeCompare([]byte(form), []byte(c.Value)) != 1 {
			http.Error(w, "invalid csrf token", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

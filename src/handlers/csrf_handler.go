package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/username/btmdesk/backend/src/logger"
)

const csrfCookieName = "_csrf_token"

// GetCSRFToken issues a fresh token as both a cookie and a response header;
// the client echoes it back in X-CSRF-Token on mutating requests.
func GetCSRFToken(w http.ResponseWriter, r *http.Request) {
	token := generateRandomToken()

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		HttpOnly: true,
		Secure:   false, // Set to true in production with HTTPS
		MaxAge:   3600,
	})

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-CSRF-Token", token)
	json.NewEncoder(w).Encode(map[string]string{"csrfToken": token})
}

func generateRandomToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		logger.L.Error("Error generating random bytes for CSRF token", "error", err)
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return base64.StdEncoding.EncodeToString(b)
}

// CSRFMiddleware is a double-submit check: the X-CSRF-Token header must match
// the CSRF cookie. GET, HEAD and OPTIONS pass through unchecked.
func CSRFMiddleware(authKey []byte) func(http.Handler) http.Handler {
	if len(authKey) < 32 {
		logger.L.Warn("CSRF auth key shorter than 32 bytes")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			headerToken := r.Header.Get("X-CSRF-Token")
			cookie, err := r.Cookie(csrfCookieName)
			if headerToken != "" && err == nil && headerToken == cookie.Value {
				next.ServeHTTP(w, r)
				return
			}

			logger.L.Warn("CSRF validation failed",
				"method", r.Method,
				"path", r.URL.Path,
				"origin", r.Header.Get("Origin"))
			http.Error(w, "CSRF token validation failed", http.StatusForbidden)
		})
	}
}

package http

import (
	"context"
	"encoding/json"
	"net/http"

	"vidmill/internal/domain"
)

const (
	CookieName   = "vidmill_session"
	CookieMaxAge = 7 * 24 * 60 * 60
)

// AuthService is the slice of the identity provider the HTTP layer needs.
type AuthService interface {
	Login(email, password string) (string, error)
	ValidateToken(token string) (domain.Identity, error)
}

type contextKey string

const identityKey contextKey = "identity"

// callerIdentity returns the identity stored by AuthMiddleware.
func callerIdentity(r *http.Request) domain.Identity {
	identity, _ := r.Context().Value(identityKey).(domain.Identity)
	return identity
}

// AuthMiddleware resolves the session cookie (or bearer token) to a caller
// identity and rejects the request when neither is valid.
func AuthMiddleware(authSvc AuthService, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			cookie, err := r.Cookie(CookieName)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			token = cookie.Value
		}

		identity, err := authSvc.ValidateToken(token)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "invalid session")
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), identityKey, identity)))
	}
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return ""
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string          `json:"token"`
	Identity domain.Identity `json:"identity"`
}

func LoginHandler(authSvc AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "malformed login request")
			return
		}

		token, err := authSvc.Login(req.Email, req.Password)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		identity, err := authSvc.ValidateToken(token)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "session issue failed")
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    token,
			MaxAge:   CookieMaxAge,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
		})
		writeJSON(w, http.StatusOK, loginResponse{Token: token, Identity: identity})
	}
}

func LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    "",
			MaxAge:   -1,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
		})
		w.WriteHeader(http.StatusNoContent)
	}
}

package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/campus-portal/internal/models"
)

type contextKey string

const IdentityKey contextKey = "identity"

// AuthInput carries the raw Cookie header into huma operations.
type AuthInput struct {
	Cookie string `header:"Cookie" doc:"Session cookie"`
}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id *models.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, id)
}

// CurrentIdentity returns the identity resolved for this request, if any.
func CurrentIdentity(ctx context.Context) (*models.Identity, bool) {
	id, ok := ctx.Value(IdentityKey).(*models.Identity)
	return id, ok && id != nil
}

// SessionCookie wraps a token in the session cookie.
func SessionCookie(token string) http.Cookie {
	return http.Cookie{
		Name:     CookieName,
		Value:    token,
		Expires:  time.Now().Add(TokenDuration),
		HttpOnly: true,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearedCookie expires the session cookie.
func ClearedCookie() http.Cookie {
	return http.Cookie{
		Name:     CookieName,
		Value:    "",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Path:     "/",
	}
}

func cookieFromHeader(header string) (string, bool) {
	r := http.Request{Header: http.Header{"Cookie": {header}}}
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// Authorize resolves the identity behind a Cookie header, or returns a 401.
func (h *AuthHandler) Authorize(ctx context.Context, cookieHeader string) (*models.Identity, error) {
	if id, ok := CurrentIdentity(ctx); ok {
		return id, nil
	}
	token, ok := cookieFromHeader(cookieHeader)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized: No token found")
	}
	uid, _, err := h.ParseToken(token)
	if err != nil {
		return nil, huma.Error401Unauthorized("Unauthorized: Invalid token")
	}
	id, err := h.Identity(ctx, uid)
	if err != nil {
		return nil, huma.Error401Unauthorized("Unauthorized: Unknown account")
	}
	return id, nil
}

// AuthMiddleware resolves the session cookie once per request and stores the
// identity in the request context. Requests without a valid session pass
// through anonymously; operations that need one call Authorize. Sessions past
// half their lifetime are refreshed.
func (h *AuthHandler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(CookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		uid, exp, err := h.ParseToken(cookie.Value)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		id, err := h.Identity(r.Context(), uid)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		// Sliding session: refresh token if it's more than halfway through its duration
		if time.Until(exp) < TokenDuration/2 {
			if newToken, err := h.GenerateToken(uid); err == nil {
				c := SessionCookie(newToken)
				http.SetCookie(w, &c)
			}
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

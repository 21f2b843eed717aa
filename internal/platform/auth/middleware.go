package auth

import (
	"context"
	"net/http"
	"strings"

	firebaseauth "firebase.google.com/go/v4/auth"

	"github.com/oakmart/api/internal/platform/httpx"
)

// TokenVerifier abstracts the Firebase verifier so tests can substitute a fake.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// Authenticator turns bearer tokens into request identities.
type Authenticator struct {
	verifier TokenVerifier
}

// NewAuthenticator constructs an Authenticator over the supplied verifier.
func NewAuthenticator(verifier TokenVerifier) *Authenticator {
	return &Authenticator{verifier: verifier}
}

// RequireUser rejects requests without a valid bearer token.
func (a *Authenticator) RequireUser() func(http.Handler) http.Handler {
	return a.middleware(true, "")
}

// RequireAdmin rejects requests whose identity lacks the admin role claim.
func (a *Authenticator) RequireAdmin() func(http.Handler) http.Handler {
	return a.middleware(true, RoleAdmin)
}

// OptionalUser attaches an identity when a valid token is present and
// otherwise passes the request through anonymously.
func (a *Authenticator) OptionalUser() func(http.Handler) http.Handler {
	return a.middleware(false, "")
}

func (a *Authenticator) middleware(required bool, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token := bearerToken(r)
			if token == "" {
				if required {
					httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if a == nil || a.verifier == nil {
				httpx.WriteError(ctx, w, httpx.NewError("auth_unavailable", "authentication backend unavailable", http.StatusServiceUnavailable))
				return
			}

			decoded, err := a.verifier.VerifyIDToken(ctx, token)
			if err != nil {
				if required {
					httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "invalid or expired token", http.StatusUnauthorized))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			identity := identityFromToken(decoded)
			if role != "" && !identity.HasRole(role) {
				httpx.WriteError(ctx, w, httpx.NewError("forbidden", "insufficient privileges", http.StatusForbidden))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
		})
	}
}

func identityFromToken(token *firebaseauth.Token) *Identity {
	identity := &Identity{
		UID:   token.UID,
		Roles: []string{RoleUser},
	}
	if email, ok := token.Claims["email"].(string); ok {
		identity.Email = email
	}
	switch roles := token.Claims["roles"].(type) {
	case []any:
		for _, r := range roles {
			if s, ok := r.(string); ok && strings.TrimSpace(s) != "" {
				identity.Roles = append(identity.Roles, s)
			}
		}
	case string:
		if strings.TrimSpace(roles) != "" {
			identity.Roles = append(identity.Roles, roles)
		}
	}
	if admin, ok := token.Claims["admin"].(bool); ok && admin {
		identity.Roles = append(identity.Roles, RoleAdmin)
	}
	return identity
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

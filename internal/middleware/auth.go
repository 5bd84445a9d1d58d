package middleware

import (
	"net/http"

	"github.com/greyfiles/loyalty/internal/auth"
	"github.com/greyfiles/loyalty/internal/store"
)

const sessionCookieName = "loyalty_session"

// RequireAuth validates the session cookie and attaches the principal to
// the request context.
func RequireAuth(sessionStore *store.SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			sess, err := sessionStore.GetByToken(r.Context(), cookie.Value)
			if err != nil || sess == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			p := auth.Principal{
				Kind:      sess.PrincipalKind,
				ID:        sess.PrincipalID,
				SessionID: sess.ID,
			}

			ctx := auth.WithPrincipal(r.Context(), p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireBrand checks that the authenticated principal is a brand.
func RequireBrand(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.BrandID(r.Context()) == 0 {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

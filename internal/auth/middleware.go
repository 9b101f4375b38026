package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

type contextKey struct{}

// WithUserID stores the signed-in user's id on ctx.
func WithUserID(ctx context.Context, id uint) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// UserIDFrom returns the id stored by WithUserID.
func UserIDFrom(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(contextKey{}).(uint)
	return id, ok && id != 0
}

// RequireUser sends anonymous requests to the login page, remembering the
// page they asked for.
func (s *Sessions) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.UserID(r)
		if !ok {
			target := "/auth/login?returnTo=" + url.QueryEscape(r.URL.RequestURI())
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// RequireUserAPI answers anonymous requests with 401 JSON.
func (s *Sessions) RequireUserAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.UserID(r)
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

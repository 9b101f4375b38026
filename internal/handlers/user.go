package handlers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/petermazzocco/go-dashboard/internal/auth"
	"github.com/petermazzocco/go-dashboard/internal/services"
)

const (
	loginPath     = "/auth/login"
	signupPath    = "/auth/signup"
	dashboardPath = "/dashboard"
)

// AuthPage serves GET /auth/login and /auth/signup. Signed-in users go
// straight to the dashboard.
func (h *Handler) AuthPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.Sessions.UserID(r); ok {
		http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid form submission"})
		return
	}
	user, err := h.Users.Signup(r.Context(), services.SignupInput{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
		Name:     r.PostFormValue("name"),
		Username: r.PostFormValue("username"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.startSession(w, r, user.ID, returnTo(r))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid form submission"})
		return
	}
	user, err := h.Users.Login(r.Context(), r.PostFormValue("email"), r.PostFormValue("password"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.startSession(w, r, user.ID, returnTo(r))
}

// returnTo is the local page a sign-in form asked to come back to, or the
// dashboard.
func returnTo(r *http.Request) string {
	if path := auth.SafeReturnTo(r.FormValue("returnTo")); path != "" {
		return path
	}
	return dashboardPath
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, userID uint, target string) {
	if err := h.Sessions.SetUserID(w, r, userID); err != nil {
		h.Log.Error("failed to save session", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to save session"})
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	_ = gothic.Logout(w, r)
	if err := h.Sessions.Clear(w, r); err != nil {
		h.Log.Warn("failed to clear session", "error", err)
	}
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

// BeginOAuth remembers returnTo and hands off to the provider.
func (h *Handler) BeginOAuth(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	if _, err := goth.GetProvider(provider); err != nil {
		loginError(w, r, "oauth_provider_unavailable")
		return
	}
	if err := h.Sessions.SetReturnTo(w, r, r.URL.Query().Get("returnTo")); err != nil {
		h.Log.Warn("failed to store returnTo", "error", err)
	}
	gothic.BeginAuthHandler(w, gothic.GetContextWithProvider(r, provider))
}

// providerErrors maps the OAuth error parameter to a login page code.
var providerErrors = map[string]string{
	"access_denied":           "google_access_denied",
	"invalid_scope":           "google_invalid_scope",
	"invalid_request":         "google_invalid_request",
	"server_error":            "google_server_error",
	"temporarily_unavailable": "google_temporarily_unavailable",
}

func loginError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, loginPath+"?error="+url.QueryEscape(code), http.StatusSeeOther)
}

func (h *Handler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	if e := r.URL.Query().Get("error"); e != "" {
		h.Log.Warn("oauth provider returned an error", "error", e, "description", r.URL.Query().Get("error_description"))
		code, ok := providerErrors[e]
		if !ok {
			code = "google_oauth_error"
		}
		loginError(w, r, code)
		return
	}

	r = gothic.GetContextWithProvider(r, chi.URLParam(r, "provider"))
	gothUser, err := gothic.CompleteUserAuth(w, r)
	if err != nil {
		h.Log.Warn("oauth completion failed", "error", err)
		loginError(w, r, "google_oauth_general_error")
		return
	}
	h.finishOAuth(w, r, gothUser)
}

// finishOAuth signs in the user behind a completed OAuth exchange.
func (h *Handler) finishOAuth(w http.ResponseWriter, r *http.Request, gu goth.User) {
	if gu.Email == "" {
		loginError(w, r, "google_no_email")
		return
	}
	// Google's v2 userinfo reports verification as verified_email. A missing
	// flag counts as unverified.
	if verified, _ := gu.RawData["verified_email"].(bool); !verified {
		loginError(w, r, "google_email_not_verified")
		return
	}

	user, err := h.Users.FindOrCreateGoogleUser(r.Context(), services.GoogleProfile{
		GoogleID:   gu.UserID,
		Email:      gu.Email,
		Name:       gu.Name,
		PictureURL: gu.AvatarURL,
	})
	if err != nil {
		h.Log.Error("failed to resolve oauth user", "error", err)
		loginError(w, r, "database_error")
		return
	}
	h.startSession(w, r, user.ID, h.Sessions.PopReturnTo(r, dashboardPath))
}

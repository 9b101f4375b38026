package auth

import (
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/markbates/goth/gothic"
)

// SessionName is the cookie holding the signed-in user.
const SessionName = "__session"

const (
	userIDKey   = "user_id"
	returnToKey = "return_to"
)

type Sessions struct {
	store *sessions.CookieStore
}

// NewSessions creates the cookie store and installs it as gothic's store,
// so OAuth state and the login session share one secret.
func NewSessions(secret string, maxAge int, secure bool) *Sessions {
	store := sessions.NewCookieStore([]byte(secret))
	store.MaxAge(maxAge)
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = secure
	store.Options.SameSite = http.SameSiteLaxMode
	gothic.Store = store
	return &Sessions{store: store}
}

func (s *Sessions) session(r *http.Request) *sessions.Session {
	// A cookie that fails to decode still yields a usable new session.
	session, _ := s.store.Get(r, SessionName)
	return session
}

// UserID returns the signed-in user's id.
func (s *Sessions) UserID(r *http.Request) (uint, bool) {
	id, ok := s.session(r).Values[userIDKey].(uint)
	if !ok || id == 0 {
		return 0, false
	}
	return id, true
}

func (s *Sessions) SetUserID(w http.ResponseWriter, r *http.Request, id uint) error {
	session := s.session(r)
	session.Values[userIDKey] = id
	return session.Save(r, w)
}

// Clear expires the session cookie.
func (s *Sessions) Clear(w http.ResponseWriter, r *http.Request) error {
	session := s.session(r)
	session.Values = map[any]any{}
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// SetReturnTo remembers where to send the user after OAuth. Anything that
// is not a local path is dropped.
func (s *Sessions) SetReturnTo(w http.ResponseWriter, r *http.Request, path string) error {
	session := s.session(r)
	if path = SafeReturnTo(path); path != "" {
		session.Values[returnToKey] = path
	} else {
		delete(session.Values, returnToKey)
	}
	return session.Save(r, w)
}

// PopReturnTo returns the remembered path, or def, and removes it from the
// session. The removal is written by the next save, such as SetUserID.
func (s *Sessions) PopReturnTo(r *http.Request, def string) string {
	session := s.session(r)
	path, _ := session.Values[returnToKey].(string)
	delete(session.Values, returnToKey)
	if path == "" {
		return def
	}
	return path
}

// SafeReturnTo returns path when it is a local absolute path, else "".
func SafeReturnTo(path string) string {
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") || strings.HasPrefix(path, "/\\") {
		return ""
	}
	return path
}

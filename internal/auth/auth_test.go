package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func cookiesFrom(rec *httptest.ResponseRecorder) []*http.Cookie {
	return rec.Result().Cookies()
}

func withCookies(r *http.Request, cookies []*http.Cookie) *http.Request {
	for _, c := range cookies {
		r.AddCookie(c)
	}
	return r
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "s3cret-pass"))
	assert.False(t, VerifyPassword(hash, "wrong"))
	assert.False(t, VerifyPassword("", ""))
}

func TestSessions_RoundTrip(t *testing.T) {
	s := NewSessions("test-secret-test-secret-test-sec", 3600, true)
	assert.Same(t, s.store, gothic.Store)

	_, ok := s.UserID(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)

	rec := httptest.NewRecorder()
	require.NoError(t, s.SetUserID(rec, httptest.NewRequest(http.MethodGet, "/", nil), 42))
	cookies := cookiesFrom(rec)
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	id, ok := s.UserID(withCookies(httptest.NewRequest(http.MethodGet, "/", nil), cookies))
	require.True(t, ok)
	assert.EqualValues(t, 42, id)

	rec = httptest.NewRecorder()
	require.NoError(t, s.Clear(rec, withCookies(httptest.NewRequest(http.MethodGet, "/", nil), cookies)))
	cleared := cookiesFrom(rec)
	require.Len(t, cleared, 1)
	assert.Less(t, cleared[0].MaxAge, 0)
}

func TestSessions_TamperedCookieIsAnonymous(t *testing.T) {
	s := NewSessions("test-secret-test-secret-test-sec", 3600, false)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: SessionName, Value: "garbage"})
	_, ok := s.UserID(r)
	assert.False(t, ok)
}

func TestReturnTo(t *testing.T) {
	s := NewSessions("test-secret-test-secret-test-sec", 3600, false)

	rec := httptest.NewRecorder()
	require.NoError(t, s.SetReturnTo(rec, httptest.NewRequest(http.MethodGet, "/", nil), "/projects/3"))
	r := withCookies(httptest.NewRequest(http.MethodGet, "/", nil), cookiesFrom(rec))
	assert.Equal(t, "/projects/3", s.PopReturnTo(r, "/dashboard"))
	assert.Equal(t, "/dashboard", s.PopReturnTo(r, "/dashboard"), "popped once")

	// The pop is persisted together with the login.
	rec = httptest.NewRecorder()
	require.NoError(t, s.SetUserID(rec, r, 9))
	r = withCookies(httptest.NewRequest(http.MethodGet, "/", nil), cookiesFrom(rec))
	assert.Equal(t, "/dashboard", s.PopReturnTo(r, "/dashboard"))
	id, ok := s.UserID(r)
	assert.True(t, ok)
	assert.EqualValues(t, 9, id)

	rec = httptest.NewRecorder()
	require.NoError(t, s.SetReturnTo(rec, httptest.NewRequest(http.MethodGet, "/", nil), "https://evil.example"))
	r = withCookies(httptest.NewRequest(http.MethodGet, "/", nil), cookiesFrom(rec))
	assert.Equal(t, "/dashboard", s.PopReturnTo(r, "/dashboard"))
}

func TestSafeReturnTo(t *testing.T) {
	assert.Equal(t, "/notes", SafeReturnTo("/notes"))
	assert.Equal(t, "", SafeReturnTo("//evil.example"))
	assert.Equal(t, "", SafeReturnTo("/\\evil.example"))
	assert.Equal(t, "", SafeReturnTo("https://evil.example"))
	assert.Equal(t, "", SafeReturnTo(""))
}

func TestRequireUser(t *testing.T) {
	s := NewSessions("test-secret-test-secret-test-sec", 3600, false)
	var seen uint
	h := s.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFrom(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notes?x=1", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login?returnTo=%2Fnotes%3Fx%3D1", rec.Header().Get("Location"))

	login := httptest.NewRecorder()
	require.NoError(t, s.SetUserID(login, httptest.NewRequest(http.MethodGet, "/", nil), 7))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, withCookies(httptest.NewRequest(http.MethodGet, "/notes", nil), cookiesFrom(login)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 7, seen)
}

func TestRequireUserAPI(t *testing.T) {
	s := NewSessions("test-secret-test-secret-test-sec", 3600, false)
	h := s.RequireUserAPI(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat-stream", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
}

func TestUseGoogle(t *testing.T) {
	goth.ClearProviders()
	t.Cleanup(goth.ClearProviders)

	assert.False(t, UseGoogle("", "", "http://localhost:3000"))
	assert.True(t, UseGoogle("key", "secret", "http://localhost:3000"))
	p, err := goth.GetProvider("google")
	require.NoError(t, err)
	assert.Equal(t, "google", p.Name())
}

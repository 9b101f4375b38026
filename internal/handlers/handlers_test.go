package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"

	"github.com/petermazzocco/go-dashboard/internal/ai"
	"github.com/petermazzocco/go-dashboard/internal/auth"
	"github.com/petermazzocco/go-dashboard/internal/handlers"
	"github.com/petermazzocco/go-dashboard/internal/logger"
	"github.com/petermazzocco/go-dashboard/internal/router"
	"github.com/petermazzocco/go-dashboard/internal/services"
	"github.com/petermazzocco/go-dashboard/internal/testutil"
	"github.com/petermazzocco/go-dashboard/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type fakeStreamer struct {
	deltas  []string
	err     error
	onStart func()

	gotModel    string
	gotMessages []ai.Message
}

func (f *fakeStreamer) Model() string { return "gpt-fake" }

func (f *fakeStreamer) StreamChat(ctx context.Context, model string, messages []ai.Message, onDelta func(string) error) (string, error) {
	f.gotModel, f.gotMessages = model, messages
	if f.onStart != nil {
		f.onStart()
	}
	var full strings.Builder
	for _, d := range f.deltas {
		full.WriteString(d)
		if err := onDelta(d); err != nil {
			return full.String(), err
		}
	}
	return full.String(), f.err
}

type memStore struct {
	objects map[string][]byte
	types   map[string]string
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memStore) Put(_ context.Context, key string, body []byte, contentType string) error {
	m.objects[key], m.types[key] = body, contentType
	return nil
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, string, error) {
	b, ok := m.objects[key]
	if !ok {
		return nil, "", fmt.Errorf("no such key %q", key)
	}
	return b, m.types[key], nil
}

func (m *memStore) PublicURL(key string) string { return "https://cdn.example/" + key }

type env struct {
	t   *testing.T
	db  *gorm.DB
	h   *handlers.Handler
	ai  *fakeStreamer
	srv http.Handler
}

func newEnv(t *testing.T) *env {
	return newEnvWithOptions(t, router.Options{})
}

func newEnvWithOptions(t *testing.T, opts router.Options) *env {
	t.Helper()
	db := testutil.DB(t)
	log := logger.Nop()
	streamer := &fakeStreamer{deltas: []string{"Hel", `lo "w"`}}
	h := &handlers.Handler{
		Users:     services.NewUserService(db, log, bcrypt.MinCost),
		Projects:  services.NewProjectService(db, log),
		Notes:     services.NewNoteService(db, log),
		Education: services.NewEducationService(db, log),
		Chats:     services.NewChatService(db, nil, log, streamer.Model()),
		Sessions:  auth.NewSessions("handler-test-secret-0123456789ab", 3600, false),
		AI:        streamer,
		Log:       log,
	}
	return &env{t: t, db: db, h: h, ai: streamer, srv: router.New(h, opts, log)}
}

func (e *env) do(req *http.Request, cookies []*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func get(path string) *http.Request {
	return httptest.NewRequest(http.MethodGet, path, nil)
}

func postForm(path string, vals url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(vals.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func postJSON(path string, v any) *http.Request {
	b, _ := json.Marshal(v)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// signup creates an account through the API and returns its session.
func (e *env) signup(username string) (*models.User, []*http.Cookie) {
	e.t.Helper()
	rec := e.do(postForm("/auth/signup", url.Values{
		"email":    {username + "@example.com"},
		"password": {"password123"},
		"name":     {"User " + username},
		"username": {username},
	}), nil)
	require.Equal(e.t, http.StatusSeeOther, rec.Code, rec.Body.String())
	var user models.User
	require.NoError(e.t, e.db.Where("username = ?", username).First(&user).Error)
	return &user, rec.Result().Cookies()
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func profileImageRequest(t *testing.T, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("intent", "updateProfileImage"))
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="profileImage"; filename=%q`, filename))
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/profile", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

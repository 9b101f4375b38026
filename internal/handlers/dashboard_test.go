package handlers_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/petermazzocco/go-dashboard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboard(t *testing.T) {
	e := newEnv(t)
	user, cookies := e.signup("dash")
	testutil.SeedProject(t, e.db, user.ID, "Website", nil)

	body := decode(t, e.do(get("/dashboard"), cookies))
	assert.Nil(t, body["chatId"])
	assert.Equal(t, []any{}, body["initialMessages"])
	home := body["homeProjects"].([]any)
	require.Len(t, home, 1)
	assert.Equal(t, "Active", home[0].(map[string]any)["badge"])
	assert.Equal(t, "dash", body["user"].(map[string]any)["username"])
	assert.NotContains(t, body["user"], "password")

	rec := e.do(postForm("/dashboard", url.Values{"intent": {"createChat"}}), cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	created := decode(t, rec)
	assert.Equal(t, "createChatSuccess", created["intent"])
	assert.Equal(t, false, created["alreadyExisted"])

	again := decode(t, e.do(postForm("/dashboard", url.Values{"intent": {"createChat"}}), cookies))
	assert.Equal(t, true, again["alreadyExisted"])
	assert.Equal(t, created["chatId"], again["chatId"])

	body = decode(t, e.do(get("/dashboard"), cookies))
	assert.Equal(t, created["chatId"], body["chatId"])

	rec = e.do(postForm("/dashboard", url.Values{"intent": {"dance"}}), cookies)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotesAndEducationRoutes(t *testing.T) {
	e := newEnv(t)
	_, cookies := e.signup("notes")

	rec := e.do(postForm("/notes", url.Values{"_action": {"createNote"}, "title": {"Todo"}, "content": {"milk"}}), cookies)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	note := decode(t, rec)["note"].(map[string]any)
	noteID := note["id"].(float64)

	rec = e.do(postForm("/notes", url.Values{"_action": {"updateNote"}, "noteId": {fmtID(noteID)}, "title": {"Todo!"}}), cookies)
	require.Equal(t, http.StatusOK, rec.Code)

	notes := decode(t, e.do(get("/notes"), cookies))["notes"].([]any)
	require.Len(t, notes, 1)
	assert.Equal(t, "Todo!", notes[0].(map[string]any)["title"])

	rec = e.do(postForm("/notes", url.Values{"_action": {"deleteNote"}, "noteId": {fmtID(noteID)}}), cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(postForm("/notes", url.Values{"_action": {"deleteNote"}, "noteId": {fmtID(noteID)}}), cookies)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = e.do(postForm("/notes", url.Values{"_action": {"createNote"}}), cookies)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(postForm("/education", url.Values{"_action": {"createResource"}, "topic": {"Go"}, "title": {"Tour"}, "url": {"https://go.dev/tour"}}), cookies)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	topics := decode(t, e.do(get("/education"), cookies))["topics"].([]any)
	require.Len(t, topics, 1)
	assert.Equal(t, "Go", topics[0].(map[string]any)["topic"])

	rec = e.do(postForm("/education", url.Values{"_action": {"nope"}}), cookies)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

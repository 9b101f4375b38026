// Package handlers implements the dashboard's HTTP loaders (GET) and
// actions (POST).
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/petermazzocco/go-dashboard/internal/ai"
	"github.com/petermazzocco/go-dashboard/internal/auth"
	"github.com/petermazzocco/go-dashboard/internal/logger"
	"github.com/petermazzocco/go-dashboard/internal/services"
	"github.com/petermazzocco/go-dashboard/models"
)

// AvatarStore keeps avatar originals outside the database.
type AvatarStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, string, error)
	PublicURL(key string) string
}

// ImageProcessor rewrites an uploaded image, returning the new bytes and
// their content type.
type ImageProcessor interface {
	Process(data []byte) ([]byte, string, error)
}

// Handler carries the dependencies of every route. Storage and Images are
// optional.
type Handler struct {
	Users     *services.UserService
	Projects  *services.ProjectService
	Notes     *services.NoteService
	Education *services.EducationService
	Chats     *services.ChatService
	Sessions  *auth.Sessions
	AI        ai.Streamer
	Storage   AvatarStore
	Images    ImageProcessor
	Log       *logger.Logger

	// Ready is checked by /healthz when set.
	Ready func(context.Context) error
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps service errors onto status codes.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if fe, ok := services.AsFieldErrors(err); ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": fe})
		return
	}
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid email or password"})
	case errors.Is(err, services.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found or access denied"})
	default:
		h.Log.Error("request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Something went wrong. Please try again."})
	}
}

func badRequest(w http.ResponseWriter, field, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{"errors": map[string]string{field: msg}})
}

// formID parses a positive id from a form field.
func formID(r *http.Request, key string) (uint, bool) {
	return parseID(r.FormValue(key))
}

func parseID(s string) (uint, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// currentUser loads the signed-in user. A session pointing at a deleted
// account is cleared and sent to the login page.
func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	userID, ok := auth.UserIDFrom(r.Context())
	if !ok {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return nil, false
	}
	user, err := h.Users.Get(r.Context(), userID)
	if errors.Is(err, services.ErrNotFound) {
		_ = h.Sessions.Clear(w, r)
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return nil, false
	}
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return user, true
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.Ready != nil {
		if err := h.Ready(r.Context()); err != nil {
			h.Log.Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

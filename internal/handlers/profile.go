package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/petermazzocco/go-dashboard/internal/services"
	"github.com/petermazzocco/go-dashboard/models"
)

// ProfileActionData is the response of every profile action.
type ProfileActionData struct {
	Success         bool              `json:"success"`
	Field           string            `json:"field,omitempty"`
	Message         string            `json:"message,omitempty"`
	Errors          map[string]string `json:"errors,omitempty"`
	Values          map[string]string `json:"values,omitempty"`
	UpdatedImageURL string            `json:"updatedImageUrl,omitempty"`
	OriginalURL     string            `json:"originalUrl,omitempty"`
}

func (h *Handler) ProfilePage(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (h *Handler) ProfileAction(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize+1<<20)
	if err := r.ParseMultipartForm(maxImageSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusBadRequest, imageError(fmt.Sprintf("Image size cannot exceed %dMB.", maxImageSize>>20)))
			return
		}
		writeJSON(w, http.StatusBadRequest, ProfileActionData{Errors: map[string]string{"form": "Invalid form submission."}})
		return
	}

	switch r.FormValue("intent") {
	case "updateName":
		h.updateProfileField(w, r, user, "name", r.FormValue("nameValue"), h.Users.UpdateName)
	case "updateUsername":
		h.updateProfileField(w, r, user, "username", r.FormValue("usernameValue"), h.Users.UpdateUsername)
	case "updateProfileImage":
		h.uploadProfileImage(w, r, user)
	case "deleteAccount":
		if err := h.Users.DeleteAccount(r.Context(), user.ID); err != nil {
			h.Log.Error("failed to delete account", "user_id", user.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, ProfileActionData{
				Field:  "account",
				Errors: map[string]string{"form": "Failed to delete account. Please try again."},
			})
			return
		}
		_ = h.Sessions.Clear(w, r)
		http.Redirect(w, r, signupPath, http.StatusSeeOther)
	default:
		http.Error(w, "Invalid intent", http.StatusBadRequest)
	}
}

func (h *Handler) updateProfileField(
	w http.ResponseWriter,
	r *http.Request,
	user *models.User,
	field, value string,
	update func(ctx context.Context, userID uint, value string) error,
) {
	err := update(r.Context(), user.ID, value)
	if err == nil {
		writeJSON(w, http.StatusOK, ProfileActionData{
			Success: true,
			Field:   field,
			Message: fieldLabels[field] + " updated successfully.",
		})
		return
	}

	values := map[string]string{field: value}
	if fe, ok := services.AsFieldErrors(err); ok {
		writeJSON(w, http.StatusBadRequest, ProfileActionData{Field: field, Errors: fe, Values: values})
		return
	}
	h.Log.Error("failed to update profile", "field", field, "user_id", user.ID, "error", err)
	writeJSON(w, http.StatusInternalServerError, ProfileActionData{
		Field:  field,
		Errors: map[string]string{field: "Failed to update " + field + "."},
		Values: values,
	})
}

var fieldLabels = map[string]string{"name": "Name", "username": "Username"}

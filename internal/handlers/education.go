package handlers

import (
	"net/http"

	"github.com/petermazzocco/go-dashboard/internal/services"
)

func (h *Handler) EducationPage(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	topics, err := h.Education.List(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"topics": topics})
}

func (h *Handler) EducationAction(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	switch r.FormValue("_action") {
	case "createResource":
		res, err := h.Education.Create(r.Context(), user.ID, services.ResourceInput{
			Topic: r.FormValue("topic"),
			Title: r.FormValue("title"),
			URL:   r.FormValue("url"),
			Kind:  r.FormValue("kind"),
		})
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "resource": res})

	case "deleteResource":
		id, ok := formID(r, "resourceId")
		if !ok {
			badRequest(w, "resourceId", "Resource ID is required")
			return
		}
		if err := h.Education.Delete(r.Context(), user.ID, id); err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "deletedResourceId": id})

	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid action"})
	}
}

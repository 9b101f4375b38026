package handlers

import (
	"net/http"

	"github.com/petermazzocco/go-dashboard/internal/services"
)

func (h *Handler) NotesPage(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	notes, err := h.Notes.List(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": notes, "user": user})
}

func noteInput(r *http.Request) services.NoteInput {
	return services.NoteInput{
		Title:   r.FormValue("title"),
		Content: r.FormValue("content"),
		Type:    r.FormValue("type"),
	}
}

func (h *Handler) NotesAction(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	switch r.FormValue("_action") {
	case "createNote":
		note, err := h.Notes.Create(ctx, user.ID, noteInput(r))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "note": note})

	case "updateNote":
		id, ok := formID(r, "noteId")
		if !ok {
			badRequest(w, "noteId", "Note ID is required")
			return
		}
		note, err := h.Notes.Update(ctx, user.ID, id, noteInput(r))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "note": note})

	case "deleteNote":
		id, ok := formID(r, "noteId")
		if !ok {
			badRequest(w, "noteId", "Note ID is required")
			return
		}
		if err := h.Notes.Delete(ctx, user.ID, id); err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "deletedNoteId": id})

	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid action"})
	}
}

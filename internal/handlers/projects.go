package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/petermazzocco/go-dashboard/internal/projecttree"
)

func (h *Handler) ProjectsPage(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	tree, err := h.Projects.Tree(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": tree, "user": user})
}

// ProjectFileTree serves the sidebar form of the project tree.
func (h *Handler) ProjectFileTree(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	tree, err := h.Projects.Tree(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projecttree.FromNodes(tree))
}

func (h *Handler) Project(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	projectID, ok := parseID(chi.URLParam(r, "projectID"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid project ID"})
		return
	}
	project, err := h.Projects.Get(r.Context(), user.ID, projectID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"project": project, "user": user})
}

func (h *Handler) ProjectsAction(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	switch r.FormValue("_action") {
	case "createProject":
		var parentID *uint
		if raw := strings.TrimSpace(r.FormValue("parentId")); raw != "" {
			id, ok := parseID(raw)
			if !ok {
				badRequest(w, "parentId", "Parent project not found")
				return
			}
			parentID = &id
		}
		project, err := h.Projects.Create(ctx, user.ID, r.FormValue("name"), parentID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "project": project})

	case "renameProject":
		id, ok := formID(r, "itemId")
		if !ok {
			badRequest(w, "itemId", "Project ID is required for renaming")
			return
		}
		project, err := h.Projects.Rename(ctx, user.ID, id, r.FormValue("newName"))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "project": project})

	case "deleteProject":
		id, ok := formID(r, "projectId")
		if !ok {
			badRequest(w, "projectId", "Project ID is required for deletion")
			return
		}
		if err := h.Projects.Delete(ctx, user.ID, id); err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "deletedProjectId": id})

	case "toggleStar":
		id, ok := formID(r, "projectId")
		if !ok {
			badRequest(w, "projectId", "Project ID is required")
			return
		}
		project, err := h.Projects.ToggleStar(ctx, user.ID, id)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "project": project})

	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid action"})
	}
}

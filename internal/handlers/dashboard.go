package handlers

import (
	"net/http"

	"github.com/petermazzocco/go-dashboard/models"
)

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	home, err := h.Projects.Home(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	chat, err := h.Chats.DashboardChat(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	messages := []models.ChatMessage{}
	var chatID *uint
	if chat != nil {
		chatID = &chat.ID
		if chat.Messages != nil {
			messages = chat.Messages
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":            user,
		"homeProjects":    home,
		"initialMessages": messages,
		"chatId":          chatID,
	})
}

func (h *Handler) DashboardAction(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	if r.FormValue("intent") != "createChat" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid intent"})
		return
	}
	chat, existed, err := h.Chats.EnsureDashboardChat(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"chatId":         chat.ID,
		"intent":         "createChatSuccess",
		"alreadyExisted": existed,
	})
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/petermazzocco/go-dashboard/internal/ai"
	"github.com/petermazzocco/go-dashboard/internal/auth"
	"github.com/petermazzocco/go-dashboard/internal/services"
	"github.com/petermazzocco/go-dashboard/models"
)

// StatusClientClosedRequest is returned when the client goes away before
// any output was written.
const StatusClientClosedRequest = 499

type chatStreamRequest struct {
	ChatID   uint                 `json:"chatId"`
	Messages []chatRequestMessage `json:"messages"`
}

type chatRequestMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type contentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	Filename string `json:"filename"`
}

// messageText flattens message content. Content is either a string or a
// list of parts; non-text parts become placeholders.
func messageText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []contentPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		switch p.Type {
		case "text":
			out = append(out, p.Text)
		case "image":
			out = append(out, "[Image]")
		case "file":
			out = append(out, "[File: "+p.Filename+"]")
		}
	}
	return strings.Join(out, " ")
}

// frame encodes one line of the data stream protocol: a type code, a
// colon and a JSON value.
func frame(code string, v any) []byte {
	var buf bytes.Buffer
	buf.WriteString(code)
	buf.WriteByte(':')
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v) // Encode ends the line
	return buf.Bytes()
}

// ChatStream serves POST /chat-stream. It saves the latest user message,
// streams the model's reply in the data stream format and saves the reply
// once the model finishes.
func (h *Handler) ChatStream(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	var req chatStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	if req.ChatID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "chatId is required"})
		return
	}

	chat, err := h.Chats.Owned(r.Context(), req.ChatID, userID)
	if errors.Is(err, services.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Chat not found or access denied"})
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	messages := make([]ai.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, ai.Message{Role: m.Role, Content: messageText(m.Content)})
	}
	if n := len(messages); n > 0 && messages[n-1].Role == models.RoleUser {
		if _, err := h.Chats.SaveUserMessage(r.Context(), chat.ID, userID, messages[n-1].Content); err != nil {
			h.Log.Error("failed to save user message", "chat_id", chat.ID, "error", err)
		}
	}

	model := chat.CurrentModel
	if model == "" {
		model = h.AI.Model()
	}

	flusher, _ := w.(http.Flusher)
	started := false
	start := func() {
		if started {
			return
		}
		started = true
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("X-Vercel-AI-Data-Stream", "v1")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
	}
	write := func(b []byte) error {
		start()
		if _, err := w.Write(b); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}

	text, err := h.AI.StreamChat(r.Context(), model, messages, func(delta string) error {
		return write(frame("0", delta))
	})
	if err != nil {
		if r.Context().Err() != nil {
			h.Log.Info("chat stream aborted by client", "chat_id", chat.ID)
			if !started {
				http.Error(w, "Stream aborted", StatusClientClosedRequest)
			}
			return
		}
		h.Log.Error("ai stream failed", "chat_id", chat.ID, "error", err)
		if !started {
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error":   "Failed to stream AI response",
				"details": err.Error(),
			})
			return
		}
		_ = write(frame("3", err.Error()))
		return
	}

	_ = write(frame("d", map[string]string{"finishReason": "stop"}))

	// The reply is kept even if the client has gone by now.
	if _, err := h.Chats.SaveAssistantMessage(context.WithoutCancel(r.Context()), chat.ID, text, model); err != nil {
		h.Log.Error("failed to save assistant message", "chat_id", chat.ID, "error", err)
	}
}

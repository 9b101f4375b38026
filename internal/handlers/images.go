package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/petermazzocco/go-dashboard/internal/services"
	"github.com/petermazzocco/go-dashboard/internal/storage"
	"github.com/petermazzocco/go-dashboard/models"
)

const maxImageSize = 5 << 20

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

func imageError(msg string) ProfileActionData {
	return ProfileActionData{Field: "profileImage", Errors: map[string]string{"profileImage": msg}}
}

// uploadProfileImage handles the updateProfileImage intent. The original is
// kept in object storage when configured; the normalised copy is served
// from the database.
func (h *Handler) uploadProfileImage(w http.ResponseWriter, r *http.Request, user *models.User) {
	file, header, err := r.FormFile("profileImage")
	if err != nil || header.Size == 0 {
		writeJSON(w, http.StatusBadRequest, imageError("Please select an image file."))
		return
	}
	defer file.Close()

	if header.Size > maxImageSize {
		writeJSON(w, http.StatusBadRequest, imageError(fmt.Sprintf("Image size cannot exceed %dMB.", maxImageSize>>20)))
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, imageError("Failed to read the uploaded image."))
		return
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if !allowedImageTypes[contentType] {
		writeJSON(w, http.StatusBadRequest, imageError("Invalid image format. Only JPG, PNG, GIF, WEBP are allowed."))
		return
	}

	in := services.ProfileImageInput{Blob: data, ContentType: contentType}
	var originalURL string
	if h.Storage != nil {
		key := storage.AvatarKey(user.ID, header.Filename)
		if err := h.Storage.Put(r.Context(), key, data, contentType); err != nil {
			h.Log.Warn("failed to store avatar original", "user_id", user.ID, "key", key, "error", err)
		} else {
			in.StorageKey = key
			originalURL = h.Storage.PublicURL(key)
			h.Log.Info("avatar original stored", "user_id", user.ID, "key", key, "url", originalURL)
		}
	}
	if h.Images != nil {
		processed, processedType, err := h.Images.Process(data)
		if err != nil {
			h.Log.Warn("failed to process avatar", "user_id", user.ID, "error", err)
			writeJSON(w, http.StatusBadRequest, imageError("The uploaded file could not be read as an image."))
			return
		}
		in.Blob, in.ContentType = processed, processedType
	}

	img, err := h.Users.SetProfileImage(r.Context(), user, in)
	if err != nil {
		h.Log.Error("failed to save profile image", "user_id", user.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, imageError("Failed to update profile image. Please try again."))
		return
	}
	writeJSON(w, http.StatusOK, ProfileActionData{
		Success:         true,
		Field:           "profileImage",
		Message:         "Profile image updated successfully.",
		UpdatedImageURL: img.URL,
		OriginalURL:     originalURL,
	})
}

func imageETag(img *models.UserImage) string {
	return `"` + strconv.FormatInt(img.UpdatedAt.UnixMilli(), 10) + `"`
}

// UserImage serves GET /images/user/{userID}.
func (h *Handler) UserImage(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseID(chi.URLParam(r, "userID"))
	if !ok {
		http.Error(w, "User ID is required", http.StatusBadRequest)
		return
	}
	exists, err := h.Users.Exists(r.Context(), userID)
	if err != nil {
		h.Log.Error("failed to look up user", "user_id", userID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if !exists {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	img, err := h.Users.ProfileImage(r.Context(), userID)
	if errors.Is(err, services.ErrNotFound) {
		http.Error(w, "Image not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.Log.Error("failed to load profile image", "user_id", userID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	data, contentType := img.Blob, img.ContentType
	if len(data) == 0 && img.StorageKey != "" && h.Storage != nil {
		data, contentType, err = h.Storage.Get(r.Context(), img.StorageKey)
		if err != nil {
			h.Log.Warn("failed to fetch avatar from storage", "key", img.StorageKey, "error", err)
			data = nil
		}
		if contentType == "" {
			contentType = img.ContentType
		}
	}
	if len(data) == 0 {
		http.Error(w, "Image not found", http.StatusNotFound)
		return
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	etag := imageETag(img)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

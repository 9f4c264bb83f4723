package http

import (
	"io"
	"net/http"
	"path/filepath"

	"business-visa-backend/internal/logger"
	"business-visa-backend/internal/storage"

	"github.com/gorilla/mux"
)

// ImageHandler serves visa images kept by the local image store.
type ImageHandler struct {
	files storage.FileReader
}

func NewImageHandler(files storage.FileReader) *ImageHandler {
	return &ImageHandler{files: files}
}

// HandleDownload streams the image stored under the {key} path variable.
func (h *ImageHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	if key == "" {
		writeBadRequest(w, "")
		return
	}

	file, err := h.files.ReadFile(key)
	if err != nil {
		writeFailure(w, http.StatusNotFound, msgNotFound)
		return
	}
	defer file.Close()

	contentType := "application/octet-stream"
	switch filepath.Ext(key) {
	case ".jpg", ".jpeg":
		contentType = "image/jpeg"
	case ".png":
		contentType = "image/png"
	case ".gif":
		contentType = "image/gif"
	}

	w.Header().Set("Content-Type", contentType)
	// URLs carry a version query, so a cached copy never goes stale.
	w.Header().Set("Cache-Control", "public, max-age=3600")

	if _, err := io.Copy(w, file); err != nil {
		logger.WarnContext(r.Context(), "Image stream interrupted", "key", key, "error", err)
	}
}

// RegisterImageRoutes registers the image download endpoint
func RegisterImageRoutes(router *mux.Router, files storage.FileReader) {
	handler := NewImageHandler(files)
	router.HandleFunc("/images/{key:.+}", handler.HandleDownload).Methods(http.MethodGet)
}

package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/peerwaya/watermark-kit/internal/storage"
)

// FileHandlers exposes the storage layer over HTTP: uploading source material
// and overlays before job creation, downloading finished outputs on
// deployments without S3, and cleaning up files a client no longer needs.
// Reads and deletes are restricted to the configured roots (temp and output
// directories); nothing outside them is reachable.
type FileHandlers struct {
	store  storage.Storage
	roots  []string
	logger *slog.Logger
}

// NewFileHandlers creates a FileHandlers restricted to the given root
// directories.
func NewFileHandlers(store storage.Storage, roots []string, logger *slog.Logger) *FileHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	cleaned := make([]string, 0, len(roots))
	for _, r := range roots {
		if r != "" {
			cleaned = append(cleaned, filepath.Clean(r))
		}
	}
	return &FileHandlers{
		store:  store,
		roots:  cleaned,
		logger: logger,
	}
}

// Upload handles POST /files requests. The request body is streamed into
// temporary storage; the returned path can be used as a job's source_path.
func (h *FileHandlers) Upload(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload"
	}
	// Base strips any directory components a client might smuggle in.
	name = filepath.Base(name)

	path, err := h.store.SaveTemp(r.Context(), name, r.Body)
	if err != nil {
		h.logger.Error("failed to save upload",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to save upload", "UPLOAD_FAILED")
		return
	}

	h.logger.Info("upload saved",
		slog.String("name", name),
		slog.String("path", path),
	)
	writeJSON(w, http.StatusCreated, UploadResponse{Path: path})
}

// Download handles GET /files requests, streaming a file from within the
// allowed roots. This is how clients fetch finished outputs when no S3
// bucket is configured.
func (h *FileHandlers) Download(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "path is required", "MISSING_PATH")
		return
	}
	if !h.allowed(path) {
		writeError(w, http.StatusForbidden, "path is outside the served directories", "PATH_FORBIDDEN")
		return
	}

	f, err := h.store.LoadTemp(r.Context(), path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeError(w, http.StatusNotFound, "file not found", "FILE_NOT_FOUND")
			return
		}
		h.logger.Error("failed to open file",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to open file", "FILE_OPEN_FAILED")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", storage.ContentTypeFor(path))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, f); err != nil {
		h.logger.Warn("file stream interrupted",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}

// Cleanup handles DELETE /files requests, removing the listed files. Paths
// outside the allowed roots are rejected as a whole rather than silently
// skipped.
func (h *FileHandlers) Cleanup(w http.ResponseWriter, r *http.Request) {
	var req CleanupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}
	if len(req.Paths) == 0 {
		writeError(w, http.StatusBadRequest, "paths is required", "MISSING_PATHS")
		return
	}
	for _, p := range req.Paths {
		if !h.allowed(p) {
			writeError(w, http.StatusForbidden, "path is outside the served directories", "PATH_FORBIDDEN")
			return
		}
	}

	if err := h.store.CleanupTemp(r.Context(), req.Paths); err != nil {
		h.logger.Error("cleanup failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to remove files", "CLEANUP_FAILED")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// allowed reports whether path sits strictly inside one of the roots.
func (h *FileHandlers) allowed(path string) bool {
	clean := filepath.Clean(path)
	for _, root := range h.roots {
		if strings.HasPrefix(clean, root+string(os.PathSeparator)) {
			return true
		}
	}
	return false
}

package web

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"torgsync/internal/logging"
	"torgsync/internal/sync"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{
		"service": "torgsync",
		"status":  "ok",
	})
}

// handleStartSync kicks off a background run and returns its ID right away.
// The caller polls the status endpoint or blocks on the result endpoint.
func (s *Server) handleStartSync(w http.ResponseWriter, r *http.Request) {
	runID, err := s.service.StartSync(r.Context())
	if err != nil {
		if errors.Is(err, sync.ErrSyncActive) {
			writeError(w, r, http.StatusConflict, err.Error())
			return
		}
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	logging.FromContext(r.Context()).Info("sync run started", "run_id", runID)
	writeJSON(w, r, http.StatusAccepted, map[string]string{"run_id": runID})
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	status, err := s.service.Status(runID)
	if err != nil {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, r, http.StatusOK, status)
}

// handleSyncResult blocks until the run finishes. A failed run still answers
// 200 with an error payload; consumers treat the body as the outcome, not the
// transport.
func (s *Server) handleSyncResult(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	if _, err := s.service.Status(runID); err != nil {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}

	stats, err := s.service.Result(runID)
	if err != nil {
		writeJSON(w, r, http.StatusOK, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, r, http.StatusOK, stats)
}

func (s *Server) handleCancelSync(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	if err := s.service.Cancel(runID); err != nil {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"run_id": runID, "status": "cancelling"})
}

// fileInfo describes one file in the export drop directory.
type fileInfo struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(s.cfg.Sync.DropDir)
	if err != nil {
		if os.IsNotExist(err) {
			writeJSON(w, r, http.StatusOK, []fileInfo{})
			return
		}
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	files := make([]fileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{
			Name:     entry.Name(),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}
	writeJSON(w, r, http.StatusOK, files)
}

// handleUploadFile stores a multipart upload into the drop directory, where
// the next sync run picks it up.
func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Sync.MaxFileSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "missing or oversized file field")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if !validFileName(name) {
		writeError(w, r, http.StatusBadRequest, "invalid file name")
		return
	}

	if err := os.MkdirAll(s.cfg.Sync.DropDir, 0o755); err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	dst, err := os.Create(filepath.Join(s.cfg.Sync.DropDir, name))
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	defer dst.Close()

	written, err := io.Copy(dst, file)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	logging.FromContext(r.Context()).Info("export file stored", "name", name, "bytes", written)
	writeJSON(w, r, http.StatusCreated, map[string]any{"name": name, "size": written})
}

func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !validFileName(name) {
		writeError(w, r, http.StatusBadRequest, "invalid file name")
		return
	}

	path := filepath.Join(s.cfg.Sync.DropDir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		writeError(w, r, http.StatusNotFound, "file not found")
		return
	}

	http.ServeFile(w, r, path)
}

// validFileName rejects anything that could escape the drop directory.
func validFileName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, "/\\") {
		return false
	}
	return filepath.Base(name) == name
}

package server

import (
	"net/http"
	"time"
)

// handleListFolders returns the caller's folders, newest first.
func (s *Server) handleListFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := s.catalog.ListFolders(r.Context(), userID(r))
	if err != nil {
		s.logger.Error("failed to list folders", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if folders == nil {
		folders = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"folders": folders})
}

// handleListFiles returns the documents in one folder.
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	folder := r.PathValue("folder")
	if folder == "" {
		writeError(w, http.StatusBadRequest, "no folder specified")
		return
	}

	files, err := s.catalog.ListFiles(r.Context(), userID(r), folder)
	if err != nil {
		s.logger.Error("failed to list files", "folder", folder, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	type fileEntry struct {
		ID        string `json:"id"`
		FileName  string `json:"fileName"`
		FileURL   string `json:"fileUrl"`
		CreatedAt string `json:"createdAt"`
	}

	entries := make([]fileEntry, 0, len(files))
	for _, doc := range files {
		entries = append(entries, fileEntry{
			ID:        doc.ID,
			FileName:  doc.FileName,
			FileURL:   doc.FileURL,
			CreatedAt: doc.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string][]fileEntry{"files": entries})
}

package server

import (
	"encoding/json"
	"net/http"

	"github.com/mbarlow/docchat/internal/models"
)

type ingestRequest struct {
	Documents  []models.FileRef `json:"documents"`
	FolderName string           `json:"folderName"`
}

type ingestResponse struct {
	Results []models.FileResult `json:"results"`
}

// handleIngest runs an ingestion batch. The response is always 200 with
// per-file results; individual failures are reported, never fatal to the
// batch.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.FolderName == "" {
		writeError(w, http.StatusBadRequest, "no folder specified")
		return
	}
	if len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, "no documents provided")
		return
	}

	results := s.pipeline.Ingest(r.Context(), req.FolderName, req.Documents)

	if s.catalog != nil {
		uid := userID(r)
		for i, result := range results {
			if !result.Success {
				continue
			}
			_, err := s.catalog.CreateDocument(r.Context(), models.Document{
				ID:        result.ID,
				UserID:    uid,
				Namespace: req.FolderName,
				FileName:  result.FileName,
				FileURL:   req.Documents[i].FileURL,
			})
			if err != nil {
				// The chunks are already searchable; a missing listing is
				// not worth failing the file over.
				s.logger.Error("failed to record document",
					"file", result.FileName,
					"namespace", req.FolderName,
					"error", err,
				)
			}
		}
	}

	writeJSON(w, http.StatusOK, ingestResponse{Results: results})
}

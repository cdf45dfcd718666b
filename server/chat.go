package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/mbarlow/docchat/internal/models"
	"github.com/mbarlow/docchat/pkg/rag"
)

// Citation metadata travels in response headers so the body can stay a
// plain text stream.
const (
	headerSources      = "x-sources"
	headerMessageIndex = "x-message-index"
)

type chatRequest struct {
	Messages   []models.Message `json:"messages"`
	FolderName string           `json:"folderName"`
}

// handleChat answers one chat exchange. The citation list and message
// index are resolved before the first body byte, then the answer streams
// as plain text.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()

	answer, err := s.orchestra.Answer(ctx, rag.Request{
		Messages:  req.Messages,
		Namespace: req.FolderName,
	})
	if err != nil {
		s.writeChatError(w, req.FolderName, err)
		return
	}

	sources, err := encodeSources(answer.Sources)
	if err != nil {
		s.logger.Error("failed to encode sources", "namespace", req.FolderName, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set(headerSources, sources)
	w.Header().Set(headerMessageIndex, strconv.Itoa(answer.MessageIndex))

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for fragment := range answer.Stream.Fragments() {
		select {
		case <-ctx.Done():
			s.logger.Info("client disconnected mid-stream", "namespace", req.FolderName)
			return
		default:
		}

		if _, err := w.Write([]byte(fragment)); err != nil {
			// Write failure usually means the connection closed.
			s.logger.Debug("failed to write fragment", "error", err)
			return
		}
		flusher.Flush()
	}

	if err := answer.Stream.Err(); err != nil {
		// Headers are long gone; an early end of stream is the only
		// remaining failure signal for this transport.
		s.logger.Error("stream interrupted", "namespace", req.FolderName, "error", err)
	}
}

func (s *Server) writeChatError(w http.ResponseWriter, namespace string, err error) {
	switch {
	case errors.Is(err, rag.ErrEmptyConversation),
		errors.Is(err, rag.ErrMissingQuestion),
		errors.Is(err, rag.ErrMissingNamespace):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, rag.ErrGenerationUnavailable):
		s.logger.Error("chat failed", "namespace", namespace, "error", err)
		writeError(w, http.StatusBadGateway, "language model unavailable")
	default:
		s.logger.Error("chat failed", "namespace", namespace, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// encodeSources serializes citations as base64 JSON for the x-sources
// header. An empty citation list encodes an empty JSON array, not "null".
func encodeSources(sources []models.SourceCitation) (string, error) {
	if sources == nil {
		sources = []models.SourceCitation{}
	}
	payload, err := json.Marshal(sources)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(payload), nil
}

package server

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/mbarlow/docchat/internal/models"
	"github.com/mbarlow/docchat/pkg/rag"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// wsMessage is the frame format in both directions. Outbound types:
// "sources" (citation list, sent before the first fragment), "stream"
// (one answer fragment), "done", and "error".
type wsMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type wsChatRequest struct {
	Messages   []models.Message `json:"messages"`
	FolderName string           `json:"folderName"`
}

// handleWebSocket serves chat over a websocket, one exchange per inbound
// message. Unlike the HTTP transport, citations travel as a message of
// their own; they are still delivered before the first fragment.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	for {
		var req wsChatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read failed", "error", err)
			}
			return
		}

		s.serveExchange(r, conn, req)
	}
}

func (s *Server) serveExchange(r *http.Request, conn *websocket.Conn, req wsChatRequest) {
	ctx := r.Context()

	answer, err := s.orchestra.Answer(ctx, rag.Request{
		Messages:  req.Messages,
		Namespace: req.FolderName,
	})
	if err != nil {
		s.sendWS(conn, wsMessage{Type: "error", Content: wsErrorMessage(err)})
		return
	}

	s.sendWS(conn, wsMessage{Type: "sources", Data: answer.Sources})

	for fragment := range answer.Stream.Fragments() {
		if !s.sendWS(conn, wsMessage{Type: "stream", Content: fragment}) {
			return
		}
	}

	if err := answer.Stream.Err(); err != nil {
		s.sendWS(conn, wsMessage{Type: "error", Content: wsErrorMessage(err)})
		return
	}

	s.sendWS(conn, wsMessage{Type: "done"})
}

func (s *Server) sendWS(conn *websocket.Conn, msg wsMessage) bool {
	if err := conn.WriteJSON(msg); err != nil {
		s.logger.Debug("websocket write failed", "error", err)
		return false
	}
	return true
}

func wsErrorMessage(err error) string {
	switch {
	case errors.Is(err, rag.ErrEmptyConversation),
		errors.Is(err, rag.ErrMissingQuestion),
		errors.Is(err, rag.ErrMissingNamespace):
		return err.Error()
	default:
		return "failed to answer your question"
	}
}

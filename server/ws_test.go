package server_test

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbarlow/docchat/internal/models"
	"github.com/mbarlow/docchat/internal/testutil"
)

type wsFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Data    any    `json:"data"`
}

func dialWS(t *testing.T, model *testutil.FakeChatModel, index *testutil.StaticIndex) *websocket.Conn {
	t.Helper()
	handler := newTestServer(t, model, index, nil, nil)
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrames(t *testing.T, conn *websocket.Conn) []wsFrame {
	t.Helper()
	var frames []wsFrame
	for {
		var frame wsFrame
		require.NoError(t, conn.ReadJSON(&frame))
		frames = append(frames, frame)
		if frame.Type == "done" || frame.Type == "error" {
			return frames
		}
	}
}

func TestWebSocketChatExchange(t *testing.T) {
	index := &testutil.StaticIndex{Results: []models.Chunk{{
		Text: "Raft elects a single leader per term.",
		Metadata: models.ChunkMetadata{
			SourceDocumentID: "doc-1",
			FileName:         "raft.pdf",
			PageNumber:       3,
		},
	}}}
	model := &testutil.FakeChatModel{Responses: []string{"Raft uses leader election."}, FragmentSize: 6}
	conn := dialWS(t, model, index)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"folderName": "papers",
		"messages":   []models.Message{{Role: models.RoleUser, Content: "how is a leader picked?"}},
	}))

	frames := readFrames(t, conn)
	require.GreaterOrEqual(t, len(frames), 3)

	assert.Equal(t, "sources", frames[0].Type, "citations arrive before the first fragment")
	assert.Equal(t, "done", frames[len(frames)-1].Type)

	var answer strings.Builder
	for _, frame := range frames[1 : len(frames)-1] {
		assert.Equal(t, "stream", frame.Type)
		answer.WriteString(frame.Content)
	}
	assert.Equal(t, "Raft uses leader election.", answer.String())
}

func TestWebSocketValidationError(t *testing.T) {
	conn := dialWS(t, &testutil.FakeChatModel{}, &testutil.StaticIndex{})

	require.NoError(t, conn.WriteJSON(map[string]any{
		"folderName": "papers",
		"messages":   []models.Message{},
	}))

	frames := readFrames(t, conn)
	require.Len(t, frames, 1)
	assert.Equal(t, "error", frames[0].Type)
	assert.Equal(t, "no messages provided", frames[0].Content)
}

func TestWebSocketServesMultipleExchanges(t *testing.T) {
	model := &testutil.FakeChatModel{Responses: []string{"first answer", "second answer"}}
	conn := dialWS(t, model, &testutil.StaticIndex{})

	ask := func(question string) string {
		require.NoError(t, conn.WriteJSON(map[string]any{
			"folderName": "papers",
			"messages":   []models.Message{{Role: models.RoleUser, Content: question}},
		}))
		frames := readFrames(t, conn)
		require.Equal(t, "done", frames[len(frames)-1].Type)
		var answer strings.Builder
		for _, frame := range frames {
			if frame.Type == "stream" {
				answer.WriteString(frame.Content)
			}
		}
		return answer.String()
	}

	assert.Equal(t, "first answer", ask("question one"))
	assert.Equal(t, "second answer", ask("question two"))
}

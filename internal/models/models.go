package models

import "time"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation. The sequence is owned by the
// client and arrives fully formed with every chat request; nothing is
// persisted server-side between requests.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChunkMetadata is the provenance attached to every chunk at ingestion
// time. (Namespace, SourceDocumentID, ChunkIndex) is the chunk identity:
// re-ingesting a document overwrites its chunks instead of duplicating them.
type ChunkMetadata struct {
	SourceDocumentID string `json:"sourceDocumentId"`
	FileName         string `json:"fileName"`
	PageNumber       int    `json:"pageNumber"`
	ChunkIndex       int    `json:"chunkIndex"`
	Namespace        string `json:"namespace"`
}

// Chunk is a bounded, overlapping window of source-document text.
// Immutable once created.
type Chunk struct {
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// EmbeddedChunk pairs a chunk with its embedding vector for upsert.
type EmbeddedChunk struct {
	Chunk
	Embedding []float32
}

// SourceCitation is the display form of a retrieved chunk. PageContent
// holds only the first few dozen runes of the chunk text.
type SourceCitation struct {
	PageContent string        `json:"pageContent"`
	Metadata    ChunkMetadata `json:"metadata"`
}

// FileRef points at one uploaded file to ingest.
type FileRef struct {
	FileURL  string `json:"fileUrl"`
	FileName string `json:"fileName"`
}

// FileResult is the per-file outcome of an ingestion batch. A failed file
// never aborts the batch; its result carries a generic error message.
type FileResult struct {
	Success  bool   `json:"success"`
	FileName string `json:"fileName"`
	ID       string `json:"id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Document is a catalog record for one ingested file, keyed by user and
// namespace. Listed on the dashboard, never consulted during retrieval.
type Document struct {
	ID        string
	UserID    string
	Namespace string
	FileName  string
	FileURL   string
	CreatedAt time.Time
}

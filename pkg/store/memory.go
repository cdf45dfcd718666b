package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/mbarlow/docchat/internal/models"
)

// MemoryStore is an in-memory vector index using brute-force cosine
// similarity. It backs development mode and tests; the namespace contract
// matches the pgvector store exactly.
type MemoryStore struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]memoryEntry
}

type memoryEntry struct {
	chunk     models.Chunk
	embedding []float32
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		namespaces: make(map[string]map[string]memoryEntry),
	}
}

// Upsert inserts or overwrites chunks keyed by (document, chunk index)
// within the namespace. The namespace is created on first write.
func (m *MemoryStore) Upsert(_ context.Context, namespace string, chunks []models.EmbeddedChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ns, ok := m.namespaces[namespace]
	if !ok {
		ns = make(map[string]memoryEntry)
		m.namespaces[namespace] = ns
	}

	for _, chunk := range chunks {
		key := fmt.Sprintf("%s_%d", chunk.Metadata.SourceDocumentID, chunk.Metadata.ChunkIndex)
		c := chunk.Chunk
		c.Metadata.Namespace = namespace
		ns[key] = memoryEntry{chunk: c, embedding: chunk.Embedding}
	}

	return nil
}

// Search scores every chunk in the namespace by cosine similarity and
// returns the topK best, highest first. Unknown namespaces yield an empty
// result, not an error.
func (m *MemoryStore) Search(_ context.Context, namespace string, queryVector []float32, topK int) ([]models.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if topK <= 0 {
		topK = 4
	}

	ns := m.namespaces[namespace]
	if len(ns) == 0 {
		return nil, nil
	}

	type scored struct {
		chunk models.Chunk
		score float64
	}

	results := make([]scored, 0, len(ns))
	for _, entry := range ns {
		results = append(results, scored{
			chunk: entry.chunk,
			score: cosineSimilarity(entry.embedding, queryVector),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	if topK > len(results) {
		topK = len(results)
	}

	chunks := make([]models.Chunk, 0, topK)
	for i := 0; i < topK; i++ {
		chunks = append(chunks, results[i].chunk)
	}
	return chunks, nil
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

package testutil

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// HashEmbedder maps text to a fixed-dimension unit vector derived from
// its words. Identical texts always embed identically and texts sharing
// words land near each other, which is enough structure for similarity
// search in tests without a model behind it.
type HashEmbedder struct {
	// Dim is the vector dimension; 0 means 8.
	Dim int
	// Err, when set, fails every call.
	Err error

	QueryCalls []string
}

func (h *HashEmbedder) dim() int {
	if h.Dim <= 0 {
		return 8
	}
	return h.Dim
}

func (h *HashEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if h.Err != nil {
		return nil, h.Err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = h.embed(text)
	}
	return vectors, nil
}

func (h *HashEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	h.QueryCalls = append(h.QueryCalls, text)
	if h.Err != nil {
		return nil, h.Err
	}
	return h.embed(text), nil
}

func (h *HashEmbedder) embed(text string) []float32 {
	dim := h.dim()
	vec := make([]float32, dim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		hash := fnv.New32a()
		hash.Write([]byte(word))
		vec[int(hash.Sum32())%dim]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

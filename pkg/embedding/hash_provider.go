package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// HashProvider is a deterministic, offline embedder. Texts sharing words land
// close together, which is enough for local development and tests.
type HashProvider struct {
	dimensions int
}

func NewHashProvider(dimensions int) *HashProvider {
	if dimensions <= 0 {
		dimensions = 768
	}
	return &HashProvider{dimensions: dimensions}
}

func (p *HashProvider) ModelName() string {
	return "hash-bow"
}

func (p *HashProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	vec := make([]float32, p.dimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		sum := h.Sum32()
		vec[int(sum)%p.dimensions] += 1
	}

	return response(normalizeVector(vec)), nil
}

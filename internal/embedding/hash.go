package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// DefaultHashDimension matches the all-MiniLM-L6-v2 output size so that both providers are interchangeable.
const DefaultHashDimension = 384

// HashEmbedder is a deterministic, dependency-free Embedder based on hashed character trigrams and words.
//
// It carries no semantics beyond surface overlap and is meant for development, tests and environments without
// the ONNX runtime.
type HashEmbedder struct {
	dimension int
}

func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = DefaultHashDimension
	}
	return &HashEmbedder{dimension: dimension}
}

func (h *HashEmbedder) Dimension() int {
	return h.dimension
}

func (h *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck // context errors are returned as is
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = h.embedOne(text)
	}
	return out, nil
}

func (h *HashEmbedder) embedOne(text string) []float32 {
	v := make([]float32, h.dimension)
	lower := strings.ToLower(text)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		// Punctuation and symbols only, fall back to the raw runes so the vector is never zero.
		runes := []rune(strings.TrimSpace(lower))
		for i, r := range runes {
			h.add(v, "r:"+string(r), 1)
			if i+3 <= len(runes) {
				h.add(v, string(runes[i:i+3]), 1)
			}
		}
	}
	for _, word := range words {
		h.add(v, "w:"+word, 2) //nolint:mnd // whole words weigh more than trigrams
		padded := []rune(" " + word + " ")
		for i := 0; i+3 <= len(padded); i++ {
			h.add(v, string(padded[i:i+3]), 1)
		}
	}
	return Normalize(v)
}

func (h *HashEmbedder) add(v []float32, feature string, weight float32) {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(feature))
	sum := hasher.Sum64()
	idx := int(sum % uint64(len(v))) //nolint:gosec // len is positive
	// The top bit picks the sign so that collisions cancel out on average.
	if sum>>63 == 1 {
		v[idx] -= weight
	} else {
		v[idx] += weight
	}
}

package embedder

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultHashingDim is the vector size of the hashing embedder.
const DefaultHashingDim = 256

// Hashing is a deterministic feature-hashing bag-of-words embedder: each
// token is hashed into one of Dim buckets with a hash-derived sign, and the
// resulting vector is L2-normalised. It needs no network or model files,
// which makes it the offline fallback and the embedder used in tests.
// Identical text always embeds to the identical vector.
type Hashing struct {
	dim int
}

// NewHashing creates a hashing embedder. dim <= 0 selects DefaultHashingDim.
func NewHashing(dim int) *Hashing {
	if dim <= 0 {
		dim = DefaultHashingDim
	}
	return &Hashing{dim: dim}
}

func (h *Hashing) Dim() int     { return h.dim }
func (h *Hashing) Name() string { return "hashing-bow" }

// Embed embeds each text independently. It never fails; the error return
// satisfies the Embedder interface.
func (h *Hashing) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = h.embedOne(text)
	}
	return out, nil
}

func (h *Hashing) embedOne(text string) []float32 {
	vec := make([]float32, h.dim)
	for _, token := range tokenize(text) {
		hash := fnv.New64a()
		_, _ = hash.Write([]byte(token))
		sum := hash.Sum64()
		bucket := int(sum % uint64(h.dim))
		sign := float32(1)
		if sum&(1<<63) != 0 {
			sign = -1
		}
		vec[bucket] += sign
	}
	normalize(vec)
	return vec
}

// tokenize lowercases and splits on non-alphanumeric runes, keeping dotted
// path segments as separate tokens so "json.Encoder" matches "encoder".
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}

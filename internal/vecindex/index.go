package vecindex

import (
	"context"
	"errors"
	"math"
)

// ErrUnavailable marks backend unavailability (closed store, unreachable
// database). Callers must be able to distinguish it from an empty result
// set, so implementations never swallow it into zero matches.
var ErrUnavailable = errors.New("vector index unavailable")

// Point is one stored record: multiple named vectors (one per embedding
// channel) plus a string payload for filtering and result metadata.
type Point struct {
	ID      string
	Vectors map[string][]float32
	Payload map[string]string
}

// ScoredPoint is one ranked query hit.
type ScoredPoint struct {
	ID      string
	Score   float32
	Payload map[string]string
}

// QueryOptions narrow a nearest-neighbour query.
type QueryOptions struct {
	// Limit caps the number of hits; <= 0 selects 10.
	Limit int

	// ScoreThreshold drops hits scoring below it (cosine similarity).
	ScoreThreshold float32

	// Filter keeps only points whose payload matches every given key/value.
	Filter map[string]string
}

func (o QueryOptions) limit() int {
	if o.Limit <= 0 {
		return 10
	}
	return o.Limit
}

func (o QueryOptions) matches(payload map[string]string) bool {
	for k, v := range o.Filter {
		if payload[k] != v {
			return false
		}
	}
	return true
}

// Index is the pluggable vector store the semantic index is built on.
// Implementations must be safe for concurrent use.
type Index interface {
	// Upsert inserts or replaces points by ID within a collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Query returns up to Limit points nearest to vector in the named
	// channel, ranked by descending cosine similarity. Points lacking the
	// channel are skipped. An unreachable backend returns an error wrapping
	// ErrUnavailable, never an empty result.
	Query(ctx context.Context, collection, channel string, vector []float32, opts QueryOptions) ([]ScoredPoint, error)

	// Count returns the number of points in a collection.
	Count(ctx context.Context, collection string) (int, error)

	// Drop removes a collection entirely.
	Drop(ctx context.Context, collection string) error
}

// Cosine returns the cosine similarity of two vectors; 0 for mismatched or
// zero-length inputs.
func Cosine(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

package vecindex

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Memory is an in-process Index: exact cosine scan over a map of points.
// Suitable for stdio deployments and tests; persistence comes from SQLite.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
	closed      bool
}

type memCollection struct {
	points map[string]Point
	order  []string // insertion order, for stable tie-breaking
}

// NewMemory creates an empty in-memory index.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]*memCollection)}
}

// Close marks the index unavailable; all later operations fail with
// ErrUnavailable. Used to simulate backend loss and for clean shutdown.
func (m *Memory) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

func (m *Memory) Upsert(ctx context.Context, collection string, points []Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("upsert %q: %w", collection, ErrUnavailable)
	}

	coll := m.collections[collection]
	if coll == nil {
		coll = &memCollection{points: make(map[string]Point)}
		m.collections[collection] = coll
	}
	for _, p := range points {
		if _, exists := coll.points[p.ID]; !exists {
			coll.order = append(coll.order, p.ID)
		}
		coll.points[p.ID] = p
	}
	return nil
}

func (m *Memory) Query(ctx context.Context, collection, channel string, vector []float32, opts QueryOptions) ([]ScoredPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, fmt.Errorf("query %q: %w", collection, ErrUnavailable)
	}

	coll := m.collections[collection]
	if coll == nil {
		return nil, nil
	}

	hits := make([]ScoredPoint, 0, len(coll.order))
	for _, id := range coll.order {
		p := coll.points[id]
		stored, ok := p.Vectors[channel]
		if !ok || !opts.matches(p.Payload) {
			continue
		}
		score := Cosine(vector, stored)
		if score < opts.ScoreThreshold {
			continue
		}
		hits = append(hits, ScoredPoint{ID: p.ID, Score: score, Payload: p.Payload})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > opts.limit() {
		hits = hits[:opts.limit()]
	}
	return hits, nil
}

func (m *Memory) Count(ctx context.Context, collection string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, fmt.Errorf("count %q: %w", collection, ErrUnavailable)
	}
	coll := m.collections[collection]
	if coll == nil {
		return 0, nil
	}
	return len(coll.points), nil
}

func (m *Memory) Drop(ctx context.Context, collection string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("drop %q: %w", collection, ErrUnavailable)
	}
	delete(m.collections, collection)
	return nil
}

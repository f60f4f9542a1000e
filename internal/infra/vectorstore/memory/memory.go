package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"clm-paralegal/internal/domain"
	"clm-paralegal/internal/domain/model"
	"clm-paralegal/internal/domain/ports/repository"
	"clm-paralegal/internal/infra/vectorstore"
)

var _ repository.VectorIndex = (*Storage)(nil)

// Storage is an in-memory vector index using brute-force cosine similarity.
type Storage struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

type collection struct {
	dimension int
	items     []model.IndexedChunk
}

func NewStorage() *Storage {
	return &Storage{collections: make(map[string]*collection)}
}

func (s *Storage) Add(ctx context.Context, name string, items []model.IndexedChunk) ([]model.Chunk, error) {
	if err := vectorstore.ValidateCollection(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collections[name]
	if c == nil {
		c = &collection{}
	}
	dim := c.dimension
	for i, it := range items {
		if len(it.Vector) == 0 {
			return nil, fmt.Errorf("item %d has empty vector: %w", i, domain.ErrInvalidInput)
		}
		if dim == 0 {
			dim = len(it.Vector)
		}
		if len(it.Vector) != dim {
			return nil, fmt.Errorf("vector dimension mismatch: got %d, want %d: %w", len(it.Vector), dim, domain.ErrInvalidInput)
		}
	}

	out := make([]model.Chunk, 0, len(items))
	for _, it := range items {
		n := int64(len(c.items))
		ch := it.Chunk
		ch.ID = vectorstore.ChunkID(name, n)
		ch.Collection = name
		c.items = append(c.items, model.IndexedChunk{Chunk: ch, Vector: slices.Clone(it.Vector)})
		out = append(out, ch)
	}
	c.dimension = dim
	s.collections[name] = c
	return out, nil
}

func (s *Storage) Query(ctx context.Context, name string, vector []float32, k int) ([]model.ScoredChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := s.collections[name]
	if c == nil || len(c.items) == 0 {
		return nil, nil
	}
	if len(vector) != c.dimension {
		return nil, fmt.Errorf("query dimension %d, index dimension %d: %w", len(vector), c.dimension, domain.ErrInvalidInput)
	}
	scored := make([]model.ScoredChunk, len(c.items))
	for i, it := range c.items {
		scored[i] = model.ScoredChunk{Chunk: it.Chunk, Score: vectorstore.Cosine(it.Vector, vector)}
	}
	// ties keep insertion order
	slices.SortStableFunc(scored, func(a, b model.ScoredChunk) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	return scored[:min(k, len(scored))], nil
}

func (s *Storage) Count(_ context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c := s.collections[name]; c != nil {
		return len(c.items), nil
	}
	return 0, nil
}

package repository

import (
	"context"

	"clm-paralegal/internal/domain/model"
)

// VectorIndex stores chunk embeddings and answers nearest-neighbour queries.
type VectorIndex interface {
	// Add appends items and returns the stored chunks with ids of the form
	// "<collection>:<n>", n being the cumulative insertion count.
	Add(ctx context.Context, collection string, items []model.IndexedChunk) ([]model.Chunk, error)
	// Query returns up to k chunks, nearest first. k above the stored count is not an error.
	Query(ctx context.Context, collection string, vector []float32, k int) ([]model.ScoredChunk, error)
	Count(ctx context.Context, collection string) (int, error)
}

// File: internal/infra/db/postgres/postgres_chunk_repo.go
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pgvector/pgvector-go"

	"clm-paralegal/internal/domain"
	"clm-paralegal/internal/domain/model"
	"clm-paralegal/internal/domain/ports/repository"
	"clm-paralegal/internal/infra/vectorstore"
)

var _ repository.VectorIndex = (*ChunkRepo)(nil)

// ChunkRepo is the pgvector-backed vector index. Rows carry a per-collection
// sequence number; allocation is serialised with a transaction-scoped advisory
// lock so concurrent writers (even across processes) never reuse an id.
type ChunkRepo struct {
	pool      *pgxpool.Pool
	tx        *TxManager
	dimension int
}

func NewChunkRepo(pool *pgxpool.Pool, dimension int) *ChunkRepo {
	return &ChunkRepo{pool: pool, tx: NewTxManager(pool), dimension: dimension}
}

// EnsureSchema creates the extension, table and ANN index if missing.
func (r *ChunkRepo) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector;`,
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS contract_chunks (
  collection  TEXT        NOT NULL,
  seq         BIGINT      NOT NULL,
  chunk_index INT         NOT NULL,
  content     TEXT        NOT NULL,
  embedding   vector(%d)  NOT NULL,
  created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  PRIMARY KEY (collection, seq)
);`, r.dimension),
		`CREATE INDEX IF NOT EXISTS contract_chunks_embedding_idx
  ON contract_chunks USING hnsw (embedding vector_cosine_ops);`,
	}
	for _, q := range stmts {
		if _, err := r.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (r *ChunkRepo) Add(ctx context.Context, collection string, items []model.IndexedChunk) ([]model.Chunk, error) {
	if err := vectorstore.ValidateCollection(collection); err != nil {
		return nil, err
	}
	for i, it := range items {
		if len(it.Vector) != r.dimension {
			return nil, fmt.Errorf("item %d: vector dimension %d, want %d: %w", i, len(it.Vector), r.dimension, domain.ErrInvalidInput)
		}
	}
	if len(items) == 0 {
		return nil, nil
	}

	out := make([]model.Chunk, len(items))
	err := r.tx.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1));`, collection); err != nil {
			return fmt.Errorf("advisory lock: %w", err)
		}
		var next int64
		const qNext = `SELECT COALESCE(MAX(seq) + 1, 0) FROM contract_chunks WHERE collection = $1;`
		if err := tx.QueryRow(ctx, qNext, collection).Scan(&next); err != nil {
			return fmt.Errorf("next seq: %w", err)
		}

		const qIns = `
INSERT INTO contract_chunks (collection, seq, chunk_index, content, embedding)
VALUES ($1, $2, $3, $4, $5);`
		batch := &pgx.Batch{}
		for i, it := range items {
			seq := next + int64(i)
			ch := it.Chunk
			ch.ID = vectorstore.ChunkID(collection, seq)
			ch.Collection = collection
			out[i] = ch
			batch.Queue(qIns, collection, seq, ch.Index, ch.Text, pgvector.NewVector(it.Vector))
		}
		br := tx.SendBatch(ctx, batch)
		for range items {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("insert chunk: %w", err)
			}
		}
		return br.Close()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ChunkRepo) Query(ctx context.Context, collection string, vector []float32, k int) ([]model.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(vector) != r.dimension {
		return nil, fmt.Errorf("query dimension %d, want %d: %w", len(vector), r.dimension, domain.ErrInvalidInput)
	}
	// All collections share one HNSW index and the collection filter is applied
	// after the scan, so the scan keeps going until k rows survive it.
	// relaxed_order can emit rows slightly out of order; hits re-sorts them.
	const q = `
WITH hits AS MATERIALIZED (
  SELECT seq, chunk_index, content, embedding <=> $2 AS distance
  FROM contract_chunks
  WHERE collection = $1
  ORDER BY embedding <=> $2
  LIMIT $3
)
SELECT seq, chunk_index, content, 1 - distance AS score
FROM hits
ORDER BY distance, seq;`

	var out []model.ScoredChunk
	err := r.tx.WithTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly}, func(ctx context.Context, tx pgx.Tx) error {
		const qTune = `
SELECT set_config('hnsw.iterative_scan', 'relaxed_order', true),
       set_config('hnsw.ef_search', $1, true);`
		if _, err := tx.Exec(ctx, qTune, fmt.Sprint(efSearch(k))); err != nil {
			return fmt.Errorf("tune scan: %w", err)
		}
		rows, err := tx.Query(ctx, q, collection, pgvector.NewVector(vector), k)
		if err != nil {
			return fmt.Errorf("query chunks: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				seq int64
				sc  model.ScoredChunk
			)
			if err := rows.Scan(&seq, &sc.Chunk.Index, &sc.Chunk.Text, &sc.Score); err != nil {
				return fmt.Errorf("scan chunk: %w", err)
			}
			sc.Chunk.ID = vectorstore.ChunkID(collection, seq)
			sc.Chunk.Collection = collection
			out = append(out, sc)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// efSearch is the HNSW candidate list size for a top-k query; pgvector caps it at 1000.
func efSearch(k int) int {
	return min(max(k, 40), 1000)
}

func (r *ChunkRepo) Count(ctx context.Context, collection string) (int, error) {
	var n int
	const q = `SELECT COUNT(*) FROM contract_chunks WHERE collection = $1;`
	if err := r.pool.QueryRow(ctx, q, collection).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

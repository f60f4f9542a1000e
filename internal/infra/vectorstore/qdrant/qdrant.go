package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"clm-paralegal/internal/domain"
	"clm-paralegal/internal/domain/model"
	"clm-paralegal/internal/domain/ports/repository"
	"clm-paralegal/internal/infra/vectorstore"
)

var _ repository.VectorIndex = (*Storage)(nil)

// Storage is a minimal REST client to Qdrant. Each index collection maps to a
// Qdrant collection with cosine distance, created on first write.
// Point ids are the per-collection sequence number; the string chunk id lives in the payload.
type Storage struct {
	url       string
	apiKey    string
	dimension int
	client    *http.Client
	log       zerolog.Logger

	// serialises sequence allocation per collection within this process
	mu      sync.Mutex
	ensured map[string]bool
}

type Config struct {
	URL       string
	APIKey    string
	Dimension int
	Timeout   time.Duration
}

func NewStorage(cfg Config, logger *zerolog.Logger) (*Storage, error) {
	if cfg.URL == "" {
		return nil, errors.New("qdrant: empty url")
	}
	if cfg.Dimension <= 0 {
		return nil, errors.New("qdrant: invalid dimension")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:       strings.TrimRight(cfg.URL, "/"),
		apiKey:    cfg.APIKey,
		dimension: cfg.Dimension,
		client:    &http.Client{Timeout: timeout},
		log:       logger.With().Str("component", "QdrantStore").Logger(),
		ensured:   make(map[string]bool),
	}, nil
}

func (s *Storage) collectionURL(name string, suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", s.url, url.PathEscape(name), suffix)
}

// ensureCollection creates the collection if it does not exist. Callers hold s.mu.
func (s *Storage) ensureCollection(ctx context.Context, name string) error {
	if s.ensured[name] {
		return nil
	}
	status, err := s.do(ctx, http.MethodGet, s.collectionURL(name, ""), nil, nil)
	if err != nil && status != http.StatusNotFound {
		return err
	}
	if status == http.StatusNotFound {
		body := map[string]any{
			"vectors": map[string]any{
				"size":     s.dimension,
				"distance": "Cosine",
			},
		}
		st, err := s.do(ctx, http.MethodPut, s.collectionURL(name, ""), body, nil)
		// 409: created concurrently by another process
		if err != nil && st != http.StatusConflict {
			return err
		}
		s.log.Info().Str("collection", name).Int("dimension", s.dimension).Msg("qdrant collection created")
	}
	s.ensured[name] = true
	return nil
}

func (s *Storage) Add(ctx context.Context, name string, items []model.IndexedChunk) ([]model.Chunk, error) {
	if err := vectorstore.ValidateCollection(name); err != nil {
		return nil, err
	}
	for i, it := range items {
		if len(it.Vector) != s.dimension {
			return nil, fmt.Errorf("item %d: vector dimension %d, want %d: %w", i, len(it.Vector), s.dimension, domain.ErrInvalidInput)
		}
	}
	if len(items) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureCollection(ctx, name); err != nil {
		return nil, err
	}
	base, err := s.count(ctx, name)
	if err != nil {
		return nil, err
	}

	points := make([]map[string]any, len(items))
	out := make([]model.Chunk, len(items))
	for i, it := range items {
		seq := int64(base + i)
		ch := it.Chunk
		ch.ID = vectorstore.ChunkID(name, seq)
		ch.Collection = name
		out[i] = ch
		points[i] = map[string]any{
			"id":     seq,
			"vector": it.Vector,
			"payload": map[string]any{
				"chunk_id":   ch.ID,
				"collection": name,
				"index":      ch.Index,
				"text":       ch.Text,
			},
		}
	}
	body := map[string]any{"points": points}
	if _, err := s.do(ctx, http.MethodPut, s.collectionURL(name, "/points?wait=true"), body, nil); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Storage) Query(ctx context.Context, name string, vector []float32, k int) ([]model.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("query dimension %d, want %d: %w", len(vector), s.dimension, domain.ErrInvalidInput)
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64 `json:"score"`
			Payload struct {
				ChunkID    string `json:"chunk_id"`
				Collection string `json:"collection"`
				Index      int    `json:"index"`
				Text       string `json:"text"`
			} `json:"payload"`
		} `json:"result"`
	}
	status, err := s.do(ctx, http.MethodPost, s.collectionURL(name, "/points/search"), req, &resp)
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	results := make([]model.ScoredChunk, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, model.ScoredChunk{
			Chunk: model.Chunk{
				ID:         r.Payload.ChunkID,
				Collection: r.Payload.Collection,
				Index:      r.Payload.Index,
				Text:       r.Payload.Text,
			},
			Score: r.Score,
		})
	}
	return results, nil
}

func (s *Storage) Count(ctx context.Context, name string) (int, error) {
	n, err := s.count(ctx, name)
	var se *statusError
	if errors.As(err, &se) && se.code == http.StatusNotFound {
		return 0, nil
	}
	return n, err
}

func (s *Storage) count(ctx context.Context, name string) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if _, err := s.do(ctx, http.MethodPost, s.collectionURL(name, "/points/count"), map[string]any{"exact": true}, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

type statusError struct {
	method, url string
	code        int
	body        string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant %s %s failed: %d %s", e.method, e.url, e.code, e.body)
}

// do sends body as JSON and decodes the reply into out. It returns the HTTP
// status (0 on transport failure) alongside any error.
func (s *Storage) do(ctx context.Context, method, u string, body, out any) (int, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("qdrant %s: %w", method, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, &statusError{method: method, url: u, code: resp.StatusCode, body: strings.TrimSpace(string(msg))}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("qdrant decode: %w", err)
		}
	}
	return resp.StatusCode, nil
}

package qdrant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"clm-paralegal/internal/domain"
	"clm-paralegal/internal/domain/model"
	"clm-paralegal/internal/infra/vectorstore"
)

type fakePoint struct {
	ID      int64          `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// fakeQdrant implements the handful of REST endpoints the store uses.
type fakeQdrant struct {
	mu          sync.Mutex
	collections map[string][]fakePoint
	apiKeys     []string
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiKeys = append(f.apiKeys, r.Header.Get("api-key"))

	rest := strings.TrimPrefix(r.URL.Path, "/collections/")
	name, sub, _ := strings.Cut(rest, "/")
	pts, exists := f.collections[name]

	switch {
	case sub == "" && r.Method == http.MethodGet:
		if !exists {
			http.Error(w, `{"status":{"error":"not found"}}`, http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"result":{}}`))
	case sub == "" && r.Method == http.MethodPut:
		f.collections[name] = nil
		_, _ = w.Write([]byte(`{"result":true}`))
	case !exists:
		http.Error(w, `{"status":{"error":"not found"}}`, http.StatusNotFound)
	case sub == "points" && r.Method == http.MethodPut:
		var body struct {
			Points []fakePoint `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.collections[name] = append(pts, body.Points...)
		_, _ = w.Write([]byte(`{"result":{"status":"completed"}}`))
	case sub == "points/count":
		_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"count": len(pts)}})
	case sub == "points/search":
		var body struct {
			Vector []float32 `json:"vector"`
			Limit  int       `json:"limit"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		type hit struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		}
		hits := make([]hit, 0, len(pts))
		for _, p := range pts {
			hits = append(hits, hit{Score: vectorstore.Cosine(p.Vector, body.Vector), Payload: p.Payload})
		}
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
		if len(hits) > body.Limit {
			hits = hits[:body.Limit]
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": hits})
	default:
		http.NotFound(w, r)
	}
}

func newTestStorage(t *testing.T) (*Storage, *fakeQdrant) {
	t.Helper()
	fake := &fakeQdrant{collections: map[string][]fakePoint{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	nop := zerolog.Nop()
	s, err := NewStorage(Config{URL: srv.URL, APIKey: "k", Dimension: 2}, &nop)
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	return s, fake
}

func item(text string, v ...float32) model.IndexedChunk {
	return model.IndexedChunk{Chunk: model.Chunk{Text: text}, Vector: v}
}

func TestStorage_AddQueryCount(t *testing.T) {
	ctx := context.Background()
	s, fake := newTestStorage(t)

	if res, err := s.Query(ctx, "contracts", []float32{1, 0}, 3); err != nil || len(res) != 0 {
		t.Fatalf("query before create: %v %v", res, err)
	}
	if n, err := s.Count(ctx, "contracts"); err != nil || n != 0 {
		t.Fatalf("count before create: %d %v", n, err)
	}

	first, err := s.Add(ctx, "contracts", []model.IndexedChunk{item("payment", 1, 0), item("termination", 0, 1)})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	second, err := s.Add(ctx, "contracts", []model.IndexedChunk{item("payment again", 1, 0.2)})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if first[0].ID != "contracts:0" || first[1].ID != "contracts:1" || second[0].ID != "contracts:2" {
		t.Fatalf("ids: %v %v", first, second)
	}
	if n, _ := s.Count(ctx, "contracts"); n != 3 {
		t.Fatalf("count=%d", n)
	}

	res, err := s.Query(ctx, "contracts", []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(res) != 3 || res[0].Chunk.ID != "contracts:0" || res[1].Chunk.Text != "payment again" {
		t.Fatalf("res=%+v", res)
	}
	for _, k := range fake.apiKeys {
		if k != "k" {
			t.Fatalf("api key not forwarded: %q", k)
		}
	}
}

func TestStorage_DimensionMismatch(t *testing.T) {
	s, _ := newTestStorage(t)
	_, err := s.Add(context.Background(), "c", []model.IndexedChunk{item("x", 1, 0, 0)})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
	_, err = s.Query(context.Background(), "c", []float32{1}, 1)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
}

func TestStorage_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()
	nop := zerolog.Nop()
	s, _ := NewStorage(Config{URL: srv.URL, Dimension: 2}, &nop)

	_, err := s.Add(context.Background(), "c", []model.IndexedChunk{item("x", 1, 0)})
	var se *statusError
	if !errors.As(err, &se) || se.code != http.StatusInternalServerError {
		t.Fatalf("want statusError 500, got %v", err)
	}
}

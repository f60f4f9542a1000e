package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"clm-paralegal/internal/domain"
	"clm-paralegal/internal/domain/model"
)

func item(text string, v ...float32) model.IndexedChunk {
	return model.IndexedChunk{Chunk: model.Chunk{Text: text}, Vector: v}
}

func TestAdd_AssignsCumulativeIDs(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()

	first, err := s.Add(ctx, "contracts", []model.IndexedChunk{item("a", 1, 0), item("b", 0, 1)})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	second, err := s.Add(ctx, "contracts", []model.IndexedChunk{item("c", 1, 1)})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	other, _ := s.Add(ctx, "other", []model.IndexedChunk{item("z", 1, 0)})

	got := []string{first[0].ID, first[1].ID, second[0].ID, other[0].ID}
	want := []string{"contracts:0", "contracts:1", "contracts:2", "other:0"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ids=%v want %v", got, want)
		}
	}
	if n, _ := s.Count(ctx, "contracts"); n != 3 {
		t.Fatalf("count=%d", n)
	}
}

func TestQuery_RanksAcrossIngestCalls(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	_, _ = s.Add(ctx, "c", []model.IndexedChunk{item("far", 0, 1)})
	_, _ = s.Add(ctx, "c", []model.IndexedChunk{item("near", 1, 0.1), item("mid", 1, 1)})

	res, err := s.Query(ctx, "c", []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(res) != 2 || res[0].Chunk.Text != "near" || res[1].Chunk.Text != "mid" {
		t.Fatalf("res=%+v", res)
	}
	if res[0].Score < res[1].Score {
		t.Fatal("results not nearest-first")
	}
}

func TestQuery_KLargerThanCount(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	_, _ = s.Add(ctx, "c", []model.IndexedChunk{item("only", 1, 0)})

	res, err := s.Query(ctx, "c", []float32{1, 0}, 10)
	if err != nil || len(res) != 1 {
		t.Fatalf("res=%v err=%v", res, err)
	}
	empty, err := s.Query(ctx, "missing", []float32{1, 0}, 3)
	if err != nil || len(empty) != 0 {
		t.Fatalf("missing collection: %v %v", empty, err)
	}
}

func TestAdd_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	_, _ = s.Add(ctx, "c", []model.IndexedChunk{item("a", 1, 0)})

	_, err := s.Add(ctx, "c", []model.IndexedChunk{item("b", 1, 0, 0)})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
	if n, _ := s.Count(ctx, "c"); n != 1 {
		t.Fatalf("failed add must not partially insert, count=%d", n)
	}
	if _, err := s.Query(ctx, "c", []float32{1}, 1); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("query mismatch: %v", err)
	}
}

func TestAdd_ConcurrentIDsUnique(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = map[string]bool{}
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := s.Add(ctx, "c", []model.IndexedChunk{item("x", 1, 0), item("y", 0, 1)})
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			for _, ch := range out {
				if ids[ch.ID] {
					t.Errorf("duplicate id %s", ch.ID)
				}
				ids[ch.ID] = true
			}
		}()
	}
	wg.Wait()
	if len(ids) != 40 {
		t.Fatalf("ids=%d", len(ids))
	}
}

package memstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"clm-paralegal/internal/domain"
	"clm-paralegal/internal/domain/model"
)

func TestSessionStore_RequiresInit(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore()

	if err := s.SetProfileFact(ctx, "ghost", "name", "x"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("SetProfileFact: %v", err)
	}
	if err := s.AppendMessage(ctx, "ghost", model.RoleUser, "hi"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("AppendMessage: %v", err)
	}
	if _, err := s.Get(ctx, "ghost"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("Get: %v", err)
	}
	if err := s.Init(ctx, ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("Init empty id: %v", err)
	}
}

func TestSessionStore_InitIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore()

	_ = s.Init(ctx, "s1")
	_ = s.SetProfileFact(ctx, "s1", "name", "Alice")
	_ = s.AppendMessage(ctx, "s1", model.RoleUser, "hello")
	if err := s.Init(ctx, "s1"); err != nil {
		t.Fatalf("second Init: %v", err)
	}

	sess, err := s.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sess.Profile["name"] != "Alice" || len(sess.Transcript) != 1 {
		t.Fatalf("init reset state: %+v", sess)
	}
}

func TestSessionStore_GetReturnsSnapshot(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore()
	_ = s.Init(ctx, "s1")
	_ = s.SetProfileFact(ctx, "s1", "name", "Alice")

	snap, _ := s.Get(ctx, "s1")
	snap.Profile["name"] = "Mallory"
	snap.Transcript = append(snap.Transcript, model.Message{Role: model.RoleUser, Content: "x"})

	again, _ := s.Get(ctx, "s1")
	if again.Profile["name"] != "Alice" || len(again.Transcript) != 0 {
		t.Fatalf("store mutated through snapshot: %+v", again)
	}
}

func TestSessionStore_ProfileLastWriteWins(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore()
	_ = s.Init(ctx, "s1")
	_ = s.SetProfileFact(ctx, "s1", "name", "Alice")
	_ = s.SetProfileFact(ctx, "s1", "name", "Bob")
	sess, _ := s.Get(ctx, "s1")
	if sess.Profile["name"] != "Bob" {
		t.Fatalf("name=%q", sess.Profile["name"])
	}
}

func TestSessionStore_LockSerializesSameSession(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore()
	_ = s.Init(ctx, "s1")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			unlock, err := s.Lock(ctx, "s1")
			if err != nil {
				t.Error(err)
				return
			}
			defer unlock()
			// user/assistant pairs must stay adjacent under the lock
			_ = s.AppendMessage(ctx, "s1", model.RoleUser, fmt.Sprintf("q%d", i))
			time.Sleep(time.Millisecond)
			_ = s.AppendMessage(ctx, "s1", model.RoleAssistant, fmt.Sprintf("a%d", i))
		}(i)
	}
	wg.Wait()

	sess, _ := s.Get(ctx, "s1")
	if len(sess.Transcript) != 20 {
		t.Fatalf("transcript len=%d", len(sess.Transcript))
	}
	for i := 0; i < 20; i += 2 {
		q, a := sess.Transcript[i].Content, sess.Transcript[i+1].Content
		if q[1:] != a[1:] {
			t.Fatalf("interleaved pair at %d: %q %q", i, q, a)
		}
	}
	if n := s.locks.size(); n != 0 {
		t.Fatalf("lock entries leaked: %d", n)
	}
}

func TestSessionStore_LockDifferentSessionsDoNotContend(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore()

	unlockA, err := s.Lock(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	defer unlockA()

	tctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	unlockB, err := s.Lock(tctx, "b")
	if err != nil {
		t.Fatalf("lock on other session blocked: %v", err)
	}
	unlockB()
}

func TestSessionStore_LockHonoursContext(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore()
	unlock, _ := s.Lock(ctx, "s1")
	defer unlock()

	tctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err := s.Lock(tctx, "s1")
	if !errors.Is(err, domain.ErrSessionBusy) || domain.KindOf(err) != domain.KindSessionBusy {
		t.Fatalf("want session busy, got %v (kind %s)", err, domain.KindOf(err))
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("cause lost: %v", err)
	}
}

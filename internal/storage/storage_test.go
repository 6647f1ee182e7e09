package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

type record struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

func TestPutAndGet(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	want := record{ID: "abc", Count: 7}
	if err := s.Put(ctx, []string{"session", "current"}, want); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	var got record
	if err := s.Get(ctx, []string{"session", "current"}, &got); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestGetNotFound(t *testing.T) {
	s := New(t.TempDir())

	var got record
	if err := s.Get(context.Background(), []string{"missing"}, &got); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPutIsAtomic_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	ctx := context.Background()

	if err := s.Put(ctx, []string{"session", "current"}, record{ID: "x"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "session", "current.json.tmp")); !os.IsNotExist(err) {
		t.Error("temp file left behind after Put")
	}
}

func TestDeleteMissingIsNoError(t *testing.T) {
	s := New(t.TempDir())
	if err := s.Delete(context.Background(), []string{"never", "existed"}); err != nil {
		t.Errorf("Delete of missing key errored: %v", err)
	}
}

func TestList(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		if err := s.Put(ctx, []string{"checkpoints", name}, record{ID: name}); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	names, err := s.List(ctx, []string{"checkpoints"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(names) != 3 {
		t.Errorf("expected 3 entries, got %d", len(names))
	}

	empty, err := s.List(ctx, []string{"nothing"})
	if err != nil || len(empty) != 0 {
		t.Errorf("List of missing dir: got %v, %v", empty, err)
	}
}

func TestConcurrentPutsSameKey(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = s.Put(ctx, []string{"session", "current"}, record{ID: "x", Count: n})
		}(i)
	}
	wg.Wait()

	var got record
	if err := s.Get(ctx, []string{"session", "current"}, &got); err != nil {
		t.Fatalf("Get after concurrent Puts failed: %v", err)
	}
	if got.ID != "x" {
		t.Errorf("record corrupted: %+v", got)
	}
}

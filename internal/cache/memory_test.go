package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemory_SetGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("test")

	if err := c.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, err := c.Get(ctx, "k")
	if err != nil || v != "v" {
		t.Fatalf("Get = %q, %v", v, err)
	}
	if _, err := c.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestMemory_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("")

	if err := c.Set(ctx, "k", "v", 10*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired key must be gone, got %v", err)
	}
}

func TestMemory_GetDelOnce(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("")

	_ = c.Set(ctx, "k", "v", time.Minute)
	v, err := c.GetDel(ctx, "k")
	if err != nil || v != "v" {
		t.Fatalf("GetDel = %q, %v", v, err)
	}
	if _, err := c.GetDel(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second GetDel must miss, got %v", err)
	}
}

func TestMemory_GetDelConcurrent(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("")
	_ = c.Set(ctx, "k", "v", time.Minute)

	const n = 32
	var hits int64
	var wg sync.WaitGroup
	wg.Add(n)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			<-start
			if _, err := c.GetDel(ctx, "k"); err == nil {
				atomic.AddInt64(&hits, 1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if hits != 1 {
		t.Fatalf("%d readers observed the value, want exactly 1", hits)
	}
}

func TestMemory_DeleteMissingIsFine(t *testing.T) {
	c := NewMemory("")
	if err := c.Delete(context.Background(), "never"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

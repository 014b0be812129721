package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemorySetGet(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	if err := c.Set(ctx, "k", map[string]string{"a": "b"}, 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	var got map[string]string
	ok, err := c.Get(ctx, "k", &got)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got["a"] != "b" {
		t.Fatalf("unexpected value: %v", got)
	}
}

func TestMemoryMiss(t *testing.T) {
	c := NewMemory()

	var got string
	ok, err := c.Get(context.Background(), "missing", &got)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatal("expected cache miss")
	}
}

func TestMemoryExpiry(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	if err := c.Set(ctx, "k", "v", time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	var got string
	ok, err := c.Get(ctx, "k", &got)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatal("expected entry to expire")
	}
}

func TestMemoryDelete(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	if err := c.Set(ctx, "a", 1, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := c.Set(ctx, "b", 2, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := c.Delete(ctx, "a", "b"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var got int
	if ok, _ := c.Get(ctx, "a", &got); ok {
		t.Fatal("expected a to be deleted")
	}
	if ok, _ := c.Get(ctx, "b", &got); ok {
		t.Fatal("expected b to be deleted")
	}
}

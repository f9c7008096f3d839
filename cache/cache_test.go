package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNoopAlwaysMisses(t *testing.T) {
	var c Cache = Noop{}
	ctx := context.Background()
	if err := c.Set(ctx, "k", 1, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var v int
	if err := c.Get(ctx, "k", &v); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("get err = %v, want ErrKeyNotFound", err)
	}
}

func TestNewRedisCacheRejectsBadURL(t *testing.T) {
	if _, err := NewRedisCache(context.Background(), "not-a-redis-url", "test"); err == nil {
		t.Fatal("expected an error for a malformed url")
	}
}

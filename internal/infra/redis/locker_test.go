package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestLockerSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	locker := NewLocker(newClient(mr), time.Second)
	unlock, err := locker.Lock(context.Background(), "user:u1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if !mr.Exists("lock:user:u1") {
		t.Fatalf("expected redis key to be set")
	}
	if ttl := mr.TTL("lock:user:u1"); ttl <= 0 || ttl > time.Second {
		t.Fatalf("expected lease ttl, got %v", ttl)
	}

	unlock()
	if mr.Exists("lock:user:u1") {
		t.Fatalf("expected redis key to be removed")
	}
}

func TestLockerWaitsForHolder(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	locker := NewLocker(newClient(mr), time.Second)
	locker.wait = 50 * time.Millisecond

	unlock, err := locker.Lock(context.Background(), "user:u1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if _, err := locker.Lock(context.Background(), "user:u1"); !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}
	unlock()

	again, err := locker.Lock(context.Background(), "user:u1")
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	again()
}

func TestLockerKeepsForeignToken(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	locker := NewLocker(newClient(mr), time.Second)
	unlock, err := locker.Lock(context.Background(), "user:u1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	// Lease expired and someone else took the key.
	mr.Set("lock:user:u1", "other-token")
	unlock()
	if got, _ := mr.Get("lock:user:u1"); got != "other-token" {
		t.Fatalf("expected foreign lock to survive, got %q", got)
	}
}

package persistence

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestInMemoryStore_Leases(t *testing.T) {
	runLeaseTests(t, NewInMemoryStore())
}

func TestInMemoryStore_LeaseRace(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	const workers = 16

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			<-start
			acquired, err := store.TryAcquireLease(ctx, "wo-race", owner(n), time.Minute)
			if err != nil {
				t.Errorf("TryAcquireLease: %v", err)
				return
			}
			if acquired {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}

	close(start)
	wg.Wait()

	if wins != 1 {
		t.Fatalf("lease won by %d owners, want exactly 1", wins)
	}
}

func owner(n int) string {
	return "owner-" + string(rune('a'+n))
}

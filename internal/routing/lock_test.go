package routing

import (
	"context"
	"sync"
	"testing"
)

func TestLocalLockerSerializesPerTicket(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	var active, maxActive int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Lock(ctx, "t1")
			if err != nil {
				t.Errorf("lock failed: %v", err)
				return
			}
			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			mu.Lock()
			active--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Fatalf("expected at most one holder for the same ticket, saw %d", maxActive)
	}
}

func TestLocalLockerIndependentTickets(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	release1, err := locker.Lock(ctx, "t1")
	if err != nil {
		t.Fatalf("lock t1: %v", err)
	}
	defer release1()

	// A different ticket must not block.
	done := make(chan struct{})
	go func() {
		release2, err := locker.Lock(ctx, "t2")
		if err == nil {
			release2()
		}
		close(done)
	}()
	<-done
}

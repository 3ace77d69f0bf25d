package keylock

import (
	"sync"
	"testing"
)

func TestLockSerializesSameKey(t *testing.T) {
	l := New()

	const workers = 20
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("order-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Fatalf("counter = %d, want %d", counter, workers)
	}
}

func TestLockIndependentKeysDoNotBlock(t *testing.T) {
	l := New()

	unlockA := l.Lock("a")
	done := make(chan struct{})
	go func() {
		unlockB := l.Lock("b")
		unlockB()
		close(done)
	}()
	<-done
	unlockA()
}

func TestEntriesReclaimedAfterRelease(t *testing.T) {
	l := New()

	unlock := l.Lock("x")
	unlock()

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) != 0 {
		t.Fatalf("entries not reclaimed, %d remain", len(l.entries))
	}
}

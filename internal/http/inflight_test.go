package http

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestInFlightTracker_Counting(t *testing.T) {
	tracker := &InFlightTracker{}
	tracker.Increment()
	tracker.Increment()
	if got := tracker.Count(); got != 2 {
		t.Errorf("Count = %d, want 2", got)
	}
	tracker.Decrement()
	if got := tracker.Count(); got != 1 {
		t.Errorf("Count = %d, want 1", got)
	}
}

func TestInFlightTracker_ConcurrentAccess(t *testing.T) {
	tracker := &InFlightTracker{}
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Increment()
			tracker.Decrement()
		}()
	}
	wg.Wait()
	if got := tracker.Count(); got != 0 {
		t.Errorf("Count = %d, want 0 after balanced inc/dec", got)
	}
}

func TestWaitForZero_ReturnsWhenDrained(t *testing.T) {
	tracker := &InFlightTracker{}
	tracker.Increment()

	go func() {
		time.Sleep(20 * time.Millisecond)
		tracker.Decrement()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := tracker.WaitForZero(ctx, 5*time.Millisecond); err != nil {
		t.Errorf("WaitForZero: %v", err)
	}
}

func TestWaitForZero_TimesOut(t *testing.T) {
	tracker := &InFlightTracker{}
	tracker.Increment()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := tracker.WaitForZero(ctx, 5*time.Millisecond)
	if err != context.DeadlineExceeded {
		t.Errorf("WaitForZero error = %v, want context.DeadlineExceeded", err)
	}
}

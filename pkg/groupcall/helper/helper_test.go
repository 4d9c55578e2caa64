package helper

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestFlag_RaiseOnlyOnce(t *testing.T) {
	var flag Flag
	if flag.IsRaised() {
		t.Fatalf("flag should start lowered")
	}

	if !flag.Raise() {
		t.Fatalf("first raise should succeed")
	}

	if flag.Raise() {
		t.Fatalf("second raise should fail")
	}

	if !flag.IsRaised() {
		t.Fatalf("flag should be raised")
	}
}

func TestSequence_ConcurrentUniqueValues(t *testing.T) {
	defer goleak.VerifyNone(t)

	seq := NewSequence(1)
	routines := 20
	each := 500
	values := make(chan uint64, routines*each)
	group := &sync.WaitGroup{}
	group.Add(routines)
	for i := 0; i < routines; i++ {
		go func() {
			defer group.Done()
			for j := 0; j < each; j++ {
				values <- seq.Next()
			}
		}()
	}
	group.Wait()
	close(values)

	seen := make(map[uint64]bool)
	for v := range values {
		if seen[v] {
			t.Fatalf("value %d generated twice", v)
		}
		seen[v] = true
	}

	if seq.Current() != uint64(routines*each) {
		t.Errorf("expected current %d, found %d", routines*each, seq.Current())
	}
}

func TestSequence_StartValue(t *testing.T) {
	seq := NewSequence(42)
	if v := seq.Next(); v != 42 {
		t.Fatalf("expected 42, found %d", v)
	}

	if v := seq.Next(); v != 43 {
		t.Fatalf("expected 43, found %d", v)
	}
}

func TestCondition_BroadcastWakesWaiter(t *testing.T) {
	defer goleak.VerifyNone(t)

	mutex := &sync.Mutex{}
	cond := NewCondition(mutex)
	ready := false
	woke := make(chan bool, 1)

	mutex.Lock()
	go func() {
		mutex.Lock()
		defer mutex.Unlock()
		for !ready {
			cond.Wait()
		}
		woke <- true
	}()
	mutex.Unlock()

	time.Sleep(10 * time.Millisecond)
	mutex.Lock()
	ready = true
	cond.Broadcast()
	mutex.Unlock()

	select {
	case <-woke:
	case <-time.After(time.Second):
		t.Fatalf("waiter never woke")
	}
}

func TestCondition_DeadlineExpires(t *testing.T) {
	mutex := &sync.Mutex{}
	cond := NewCondition(mutex)
	timeout := 50 * time.Millisecond

	mutex.Lock()
	start := time.Now()
	signaled := cond.WaitUntil(context.Background(), start.Add(timeout))
	elapsed := time.Since(start)
	mutex.Unlock()

	if signaled {
		t.Fatalf("should not be signaled")
	}

	if elapsed < timeout {
		t.Errorf("woke too early after %s", elapsed)
	}
}

func TestCondition_PastDeadlineReturnsRightAway(t *testing.T) {
	mutex := &sync.Mutex{}
	cond := NewCondition(mutex)

	mutex.Lock()
	defer mutex.Unlock()
	if cond.WaitUntil(context.Background(), time.Now().Add(-time.Second)) {
		t.Fatalf("should not be signaled")
	}
}

func TestCondition_ContextCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	mutex := &sync.Mutex{}
	cond := NewCondition(mutex)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	mutex.Lock()
	defer mutex.Unlock()
	if cond.WaitUntil(ctx, time.Time{}) {
		t.Fatalf("should not be signaled")
	}

	if ctx.Err() == nil {
		t.Fatalf("context should be cancelled")
	}
}

func TestInvoker_StopWaitsRoutines(t *testing.T) {
	defer goleak.VerifyNone(t)

	invoker := NewInvoker()
	finished := make(chan struct{}, 3)
	for i := 0; i < 3; i++ {
		spawned := invoker.Spawn(func() {
			time.Sleep(10 * time.Millisecond)
			finished <- struct{}{}
		})
		if !spawned {
			t.Fatalf("should spawn routine")
		}
	}

	invoker.Stop()
	if len(finished) != 3 {
		t.Fatalf("expected 3 finished routines, found %d", len(finished))
	}

	if invoker.Spawn(func() {}) {
		t.Fatalf("should not spawn after stopped")
	}
}

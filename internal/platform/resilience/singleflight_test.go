package resilience

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSingleFlight_SharesConcurrentCalls(t *testing.T) {
	var g SingleFlight
	var calls atomic.Int32

	const workers = 16
	start := make(chan struct{})
	shared := make([]bool, workers)
	values := make([]any, workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		i := i
		go func() {
			defer wg.Done()
			<-start
			v, err, wasShared := g.Do("odds:basketball", func() (any, error) {
				calls.Add(1)
				time.Sleep(20 * time.Millisecond)
				return "payload", nil
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			values[i] = v
			shared[i] = wasShared
		}()
	}
	close(start)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected one upstream call, got %d", got)
	}
	sharedCount := 0
	for i := 0; i < workers; i++ {
		if values[i] != "payload" {
			t.Fatalf("worker %d got %v", i, values[i])
		}
		if shared[i] {
			sharedCount++
		}
	}
	if sharedCount != workers-1 {
		t.Fatalf("expected %d shared results, got %d", workers-1, sharedCount)
	}
}

func TestSingleFlight_PropagatesError(t *testing.T) {
	var g SingleFlight
	wantErr := errors.New("upstream down")

	_, err, _ := g.Do("key", func() (any, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSingleFlight_SequentialCallsRunSeparately(t *testing.T) {
	var g SingleFlight
	calls := 0

	for i := 0; i < 3; i++ {
		_, _, shared := g.Do("key", func() (any, error) {
			calls++
			return calls, nil
		})
		if shared {
			t.Fatalf("sequential call %d reported shared", i)
		}
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

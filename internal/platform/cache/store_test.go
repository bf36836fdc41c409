package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestStore_SetGetDelete(t *testing.T) {
	store := NewStore(time.Minute)
	ctx := context.Background()

	if _, ok := store.Get(ctx, "missing"); ok {
		t.Fatal("empty store must miss")
	}

	store.Set(ctx, "line:g-1:spread", "-2.5")
	v, ok := store.Get(ctx, "line:g-1:spread")
	if !ok || v != "-2.5" {
		t.Fatalf("unexpected get: v=%v ok=%v", v, ok)
	}

	store.Delete(ctx, "line:g-1:spread")
	if _, ok := store.Get(ctx, "line:g-1:spread"); ok {
		t.Fatal("deleted key must miss")
	}
}

func TestStore_TTLExpiry(t *testing.T) {
	store := NewStore(10 * time.Millisecond)
	ctx := context.Background()

	store.Set(ctx, "key", "value")
	if _, ok := store.Get(ctx, "key"); !ok {
		t.Fatal("fresh entry must hit")
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := store.Get(ctx, "key"); ok {
		t.Fatal("expired entry must miss")
	}
}

func TestStore_DeletePrefix(t *testing.T) {
	store := NewStore(time.Minute)
	ctx := context.Background()

	store.Set(ctx, "line:g-1:spread", 1)
	store.Set(ctx, "line:g-1:total", 2)
	store.Set(ctx, "line:g-2:spread", 3)

	store.DeletePrefix(ctx, "line:g-1:")

	if _, ok := store.Get(ctx, "line:g-1:spread"); ok {
		t.Fatal("prefixed key survived")
	}
	if _, ok := store.Get(ctx, "line:g-1:total"); ok {
		t.Fatal("prefixed key survived")
	}
	if _, ok := store.Get(ctx, "line:g-2:spread"); !ok {
		t.Fatal("unrelated key was dropped")
	}
}

func TestStore_GetOrLoad_UsesSingleFlight(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	var calls atomic.Int32

	loader := func(context.Context) (any, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return "value", nil
	}

	const workers = 32
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)
	errCh := make(chan error, workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			v, err := store.GetOrLoad(context.Background(), "same-key", loader)
			if err != nil {
				errCh <- err
				return
			}
			if got, _ := v.(string); got != "value" {
				errCh <- fmt.Errorf("unexpected value: %v", v)
			}
		}()
	}

	close(start)
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected a single loader call, got %d", got)
	}
}

func TestStore_GetOrLoad_SkipCache(t *testing.T) {
	store := NewStore(time.Minute)
	calls := 0

	loader := func(context.Context) (any, error) {
		calls++
		return "uncachable", ErrSkipCache
	}

	for i := 0; i < 2; i++ {
		v, err := store.GetOrLoad(context.Background(), "key", loader)
		if err != nil {
			t.Fatalf("skip-cache load must not error: %v", err)
		}
		if v != "uncachable" {
			t.Fatalf("unexpected value: %v", v)
		}
	}
	if calls != 2 {
		t.Fatalf("skip-cache result must not be stored: calls=%d", calls)
	}
}

func TestStore_GetOrLoad_ErrorNotCached(t *testing.T) {
	store := NewStore(time.Minute)
	wantErr := errors.New("load failed")
	calls := 0

	loader := func(context.Context) (any, error) {
		calls++
		if calls == 1 {
			return nil, wantErr
		}
		return "recovered", nil
	}

	if _, err := store.GetOrLoad(context.Background(), "key", loader); !errors.Is(err, wantErr) {
		t.Fatalf("unexpected error: %v", err)
	}
	v, err := store.GetOrLoad(context.Background(), "key", loader)
	if err != nil || v != "recovered" {
		t.Fatalf("unexpected retry result: v=%v err=%v", v, err)
	}
}

func TestStore_GetOrLoad_EmptyKeyBypassesStore(t *testing.T) {
	store := NewStore(time.Minute)
	calls := 0

	for i := 0; i < 2; i++ {
		if _, err := store.GetOrLoad(context.Background(), "", func(context.Context) (any, error) {
			calls++
			return "v", nil
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if calls != 2 {
		t.Fatalf("empty key must always load: calls=%d", calls)
	}
}

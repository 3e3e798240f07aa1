package parallel

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// TestPoolRunsAllTasks tests that every submitted task runs once
func TestPoolRunsAllTasks(t *testing.T) {
	pool, err := NewPool(context.Background(), 4)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}

	var counter int64
	results := make([]int, 100)
	for i := range results {
		pool.Go(func(ctx context.Context) error {
			atomic.AddInt64(&counter, 1)
			results[i] = i * i
			return nil
		})
	}

	if err := pool.Wait(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if counter != 100 {
		t.Errorf("Expected counter 100, got %d", counter)
	}
	for i, r := range results {
		if r != i*i {
			t.Fatalf("result %d: expected %d, got %d", i, i*i, r)
		}
	}
}

// TestPoolLimit tests that no more than the configured workers run at once
func TestPoolLimit(t *testing.T) {
	pool, err := NewPool(context.Background(), 2)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}

	var running, peak int64
	for i := 0; i < 10; i++ {
		pool.Go(func(ctx context.Context) error {
			n := atomic.AddInt64(&running, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&running, -1)
			return nil
		})
	}

	if err := pool.Wait(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if peak > 2 {
		t.Errorf("Expected at most 2 concurrent tasks, got %d", peak)
	}
}

// TestPoolFirstErrorCancels tests that a failing task cancels the others
func TestPoolFirstErrorCancels(t *testing.T) {
	pool, err := NewPool(context.Background(), 2)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}

	boom := errors.New("boom")
	pool.Go(func(ctx context.Context) error {
		return boom
	})
	pool.Go(func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return errors.New("not cancelled")
		}
	})

	if err := pool.Wait(); !errors.Is(err, boom) {
		t.Errorf("Expected first error, got %v", err)
	}
}

// TestPoolRecoversPanic tests that a panicking task becomes an error
func TestPoolRecoversPanic(t *testing.T) {
	pool, err := NewPool(context.Background(), 1)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}

	pool.Go(func(ctx context.Context) error {
		panic("index out of range")
	})

	err = pool.Wait()
	if err == nil || !strings.Contains(err.Error(), "index out of range") {
		t.Errorf("Expected recovered panic error, got %v", err)
	}
}

func TestPoolParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool, err := NewPool(ctx, 1)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	pool.Go(func(ctx context.Context) error {
		return ctx.Err()
	})

	if err := pool.Wait(); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestNewPoolWorkers(t *testing.T) {
	pool, err := NewPool(context.Background(), 0)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	if pool.Workers() < 1 {
		t.Errorf("Expected at least one worker, got %d", pool.Workers())
	}

	if _, err := NewPool(context.Background(), MaxWorkers+1); !errors.Is(err, ErrTooManyWorkers) {
		t.Errorf("Expected ErrTooManyWorkers, got %v", err)
	}
}

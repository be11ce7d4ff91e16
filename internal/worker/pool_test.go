package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type mockResult struct {
	idx int
	err error
}

func (r *mockResult) Index() int      { return r.idx }
func (r *mockResult) GetError() error { return r.err }

type mockJob struct {
	idx       int
	duration  time.Duration
	shouldErr bool
	executed  *int32
	start     func()
	end       func()
}

func (j *mockJob) Index() int { return j.idx }

func (j *mockJob) Execute(ctx context.Context) Result {
	if j.executed != nil {
		atomic.AddInt32(j.executed, 1)
	}
	if j.start != nil {
		j.start()
	}
	if j.end != nil {
		defer j.end()
	}
	if j.duration > 0 {
		select {
		case <-time.After(j.duration):
		case <-ctx.Done():
			return &mockResult{idx: j.idx, err: ctx.Err()}
		}
	}
	if j.shouldErr {
		return &mockResult{idx: j.idx, err: errors.New("job error")}
	}
	return &mockResult{idx: j.idx}
}

func TestNewPool(t *testing.T) {
	for in, want := range map[int]int{5: 5, 0: 1, -1: 1} {
		if p := NewPool(context.Background(), in); p.workers != want {
			t.Errorf("NewPool(%d): expected %d workers, got %d", in, want, p.workers)
		}
	}
}

func TestPool_Execution(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()

	var executed int32
	count := 10
	for i := 0; i < count; i++ {
		pool.Submit(&mockJob{idx: i, executed: &executed})
	}

	results := pool.Wait()
	if len(results) != count {
		t.Errorf("expected %d results, got %d", count, len(results))
	}
	if atomic.LoadInt32(&executed) != int32(count) {
		t.Errorf("expected %d executed jobs, got %d", count, executed)
	}

	seen := make(map[int]bool)
	for _, r := range results {
		seen[r.Index()] = true
	}
	if len(seen) != count {
		t.Errorf("expected %d distinct indexes, got %d", count, len(seen))
	}
}

func TestPool_Concurrency(t *testing.T) {
	workers := 10
	pool := NewPool(context.Background(), workers)
	pool.Start()

	var current, maxConcurrent, completed int32
	var mu sync.Mutex

	totalJobs := 50
	for i := 0; i < totalJobs; i++ {
		pool.Submit(&mockJob{
			idx: i,
			start: func() {
				curr := atomic.AddInt32(&current, 1)
				mu.Lock()
				if curr > maxConcurrent {
					maxConcurrent = curr
				}
				mu.Unlock()
			},
			end: func() {
				atomic.AddInt32(&current, -1)
				atomic.AddInt32(&completed, 1)
			},
			duration: 10 * time.Millisecond,
		})
	}
	pool.Wait()

	if atomic.LoadInt32(&completed) != int32(totalJobs) {
		t.Errorf("expected %d completed jobs, got %d", totalJobs, completed)
	}
	mu.Lock()
	peak := maxConcurrent
	mu.Unlock()
	if peak > int32(workers) {
		t.Errorf("max concurrency %d exceeded workers %d", peak, workers)
	}
}

func TestPool_ErrorHandling(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()

	pool.Submit(&mockJob{idx: 0, shouldErr: true})
	pool.Submit(&mockJob{idx: 1})

	results := pool.Wait()
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	failed := 0
	for _, res := range results {
		if res.GetError() != nil {
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("expected 1 error, got %d", failed)
	}
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()
	pool.Shutdown()

	done := make(chan int)
	go func() {
		accepted := 0
		for i := 0; i < 200; i++ {
			if pool.Submit(&mockJob{idx: i}) {
				accepted++
			}
		}
		done <- accepted
	}()

	select {
	case accepted := <-done:
		if accepted != 0 {
			t.Errorf("Submit after shutdown must be refused, %d jobs accepted", accepted)
		}
	case <-time.After(time.Second):
		t.Fatal("Submit after shutdown blocked")
	}
}

func TestPool_ParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, 1)
	pool.Start()

	started := make(chan struct{})
	pool.Submit(&mockJob{idx: 0, start: func() { close(started) }, duration: 5 * time.Second})
	<-started
	cancel()

	done := make(chan []Result)
	go func() { done <- pool.Wait() }()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pool did not stop after parent cancellation")
	}
}

func TestPool_Shutdown(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()

	started := make(chan struct{})
	pool.Submit(&mockJob{start: func() { close(started) }, duration: 200 * time.Millisecond})
	<-started
	pool.Shutdown()

	done := make(chan struct{})
	go func() {
		for range pool.Results() {
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Shutdown timed out")
	}
}

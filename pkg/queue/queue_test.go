package queue

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerDispatchesJobs(t *testing.T) {
	q := NewMemoryQueue(8)
	w := NewWorker(q)

	var processed atomic.Int32
	w.Register("count", func(ctx context.Context, job Job) error {
		processed.Add(1)
		return nil
	})

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := q.Enqueue(ctx, Job{Name: "count"}); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	w.Start(ctx)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := w.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if got := processed.Load(); got != 5 {
		t.Errorf("expected 5 processed jobs, got %d", got)
	}
}

func TestJobArgumentsArriveIntact(t *testing.T) {
	q := NewMemoryQueue(1)
	w := NewWorker(q)

	got := make(chan Job, 1)
	w.Register("echo", func(ctx context.Context, job Job) error {
		got <- job
		return nil
	})

	ctx := context.Background()
	want := Job{Name: "echo", Args: map[string]string{"owner_id": "u1", "path": "/docs"}}
	if err := q.Enqueue(ctx, want); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	w.Start(ctx)

	select {
	case job := <-got:
		if job.Args["owner_id"] != "u1" || job.Args["path"] != "/docs" {
			t.Errorf("job arguments corrupted: %v", job.Args)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("job was never dispatched")
	}

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := w.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestEnqueueFailsWhenFull(t *testing.T) {
	q := NewMemoryQueue(1)
	ctx := context.Background()

	if err := q.Enqueue(ctx, Job{Name: "a"}); err != nil {
		t.Fatalf("first Enqueue failed: %v", err)
	}
	if err := q.Enqueue(ctx, Job{Name: "b"}); err == nil {
		t.Fatal("Enqueue on a full queue should fail")
	}
}

func TestEnqueueFailsAfterClose(t *testing.T) {
	q := NewMemoryQueue(4)
	q.close()

	if err := q.Enqueue(context.Background(), Job{Name: "a"}); err == nil {
		t.Fatal("Enqueue on a closed queue should fail")
	}
}

func TestFailingJobDoesNotStopWorker(t *testing.T) {
	q := NewMemoryQueue(4)
	w := NewWorker(q)

	var succeeded atomic.Bool
	w.Register("fail", func(ctx context.Context, job Job) error {
		return context.DeadlineExceeded
	})
	w.Register("ok", func(ctx context.Context, job Job) error {
		succeeded.Store(true)
		return nil
	})

	ctx := context.Background()
	q.Enqueue(ctx, Job{Name: "fail"})
	q.Enqueue(ctx, Job{Name: "ok"})
	w.Start(ctx)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := w.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if !succeeded.Load() {
		t.Error("worker should keep processing after a failed job")
	}
}

package workerpool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func upper(_ context.Context, task *Task[string]) *Result[string] {
	return &Result[string]{TaskID: task.ID, Success: true, Data: strings.ToUpper(task.Payload)}
}

func TestNewRequiresWorkerFunc(t *testing.T) {
	if _, err := New[string, string](DefaultConfig(), nil, nil); err == nil {
		t.Fatal("expected error for nil worker func")
	}
}

func TestMapPreservesOrder(t *testing.T) {
	p, err := New(Config{Workers: 4, QueueSize: 2}, upper, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.Start()
	defer p.Stop()

	in := []string{"isa", "gs", "st", "bpr", "clp", "svc", "se", "ge", "iea"}
	out := p.Map(context.Background(), in, func(i int, _ string) string { return fmt.Sprint(i) })
	for i, r := range out {
		if !r.Success || r.Data != strings.ToUpper(in[i]) || r.TaskID != fmt.Sprint(i) {
			t.Errorf("result %d = %+v", i, r)
		}
	}
	if got := p.Stats().TasksCompleted; got != int64(len(in)) {
		t.Errorf("completed = %d", got)
	}
}

func TestSubmitDeliversToResults(t *testing.T) {
	p, _ := New(Config{Workers: 1, QueueSize: 4}, upper, nil)
	p.Start()

	if err := p.Submit(&Task[string]{ID: "a", Payload: "clp"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	select {
	case r := <-p.Results():
		if r.Data != "CLP" {
			t.Errorf("got %q", r.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no result")
	}

	p.Stop()
	if err := p.Submit(&Task[string]{ID: "b"}); !errors.Is(err, ErrPoolStopped) {
		t.Errorf("submit after stop: %v", err)
	}
}

func TestSubmitQueueFull(t *testing.T) {
	release := make(chan struct{})
	block := func(_ context.Context, task *Task[int]) *Result[int] {
		<-release
		return &Result[int]{TaskID: task.ID, Success: true}
	}
	p, _ := New(Config{Workers: 1, QueueSize: 1}, block, nil)
	// Not started, so the single queue slot fills.
	if err := p.Submit(&Task[int]{ID: "1"}); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if err := p.Submit(&Task[int]{ID: "2"}); !errors.Is(err, ErrQueueFull) {
		t.Errorf("second submit: %v", err)
	}
	p.Start()
	close(release)
	p.Stop()
}

func TestRetries(t *testing.T) {
	var calls int32
	flaky := func(_ context.Context, task *Task[int]) *Result[int] {
		if atomic.AddInt32(&calls, 1) < 3 {
			return &Result[int]{TaskID: task.ID, Error: errors.New("store unavailable")}
		}
		return &Result[int]{TaskID: task.ID, Success: true, Data: task.Payload * 2}
	}
	p, _ := New(Config{Workers: 1, QueueSize: 1, MaxRetries: 3, RetryDelay: time.Millisecond}, flaky, nil)
	p.Start()
	defer p.Stop()

	r, err := p.SubmitWait(context.Background(), &Task[int]{ID: "x", Payload: 21})
	if err != nil {
		t.Fatalf("SubmitWait: %v", err)
	}
	if !r.Success || r.Data != 42 {
		t.Errorf("result = %+v", r)
	}
	if got := p.Stats().TasksRetried; got != 2 {
		t.Errorf("retried = %d", got)
	}
}

func TestRetriesExhausted(t *testing.T) {
	failing := func(_ context.Context, task *Task[int]) *Result[int] {
		return &Result[int]{TaskID: task.ID, Error: errors.New("nope")}
	}
	p, _ := New(Config{Workers: 1, QueueSize: 1, MaxRetries: 1, RetryDelay: time.Millisecond}, failing, nil)
	p.Start()
	defer p.Stop()

	r, _ := p.SubmitWait(context.Background(), &Task[int]{ID: "x"})
	if r.Success || r.Error == nil || !strings.Contains(r.Error.Error(), "after 1 retries") {
		t.Errorf("result = %+v", r)
	}
	if p.Stats().TasksFailed != 1 {
		t.Errorf("failed = %d", p.Stats().TasksFailed)
	}
}

func TestRetryableStopsRetries(t *testing.T) {
	malformed := errors.New("malformed interchange")
	var calls int32
	failing := func(_ context.Context, task *Task[int]) *Result[int] {
		atomic.AddInt32(&calls, 1)
		return &Result[int]{TaskID: task.ID, Error: fmt.Errorf("decode: %w", malformed)}
	}
	cfg := Config{Workers: 1, QueueSize: 1, MaxRetries: 3, RetryDelay: time.Millisecond,
		Retryable: func(err error) bool { return !errors.Is(err, malformed) }}
	p, _ := New(cfg, failing, nil)
	p.Start()
	defer p.Stop()

	r, _ := p.SubmitWait(context.Background(), &Task[int]{ID: "x"})
	if r.Success || !errors.Is(r.Error, malformed) {
		t.Errorf("result = %+v", r)
	}
	if calls != 1 || p.Stats().TasksRetried != 0 {
		t.Errorf("calls = %d, retried = %d", calls, p.Stats().TasksRetried)
	}
}

func TestIsHealthy(t *testing.T) {
	p, _ := New(Config{Workers: 1, QueueSize: 10}, upper, nil)
	if !p.IsHealthy() {
		t.Error("empty pool should be healthy")
	}
}

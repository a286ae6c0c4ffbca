package reflux

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoobzio/clockz"
)

// flaky fails until it has been called n times.
func flaky(n int32, calls *atomic.Int32) Task {
	return func(context.Context) (any, error) {
		if calls.Add(1) < n {
			return nil, errors.New("transient")
		}
		return "ok", nil
	}
}

func TestTask_WithRetry(t *testing.T) {
	var calls atomic.Int32
	v, err := flaky(3, &calls).WithRetry(3)(context.Background())
	if err != nil || v != "ok" {
		t.Fatalf("expected success on third attempt, got %v %v", v, err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}

	calls.Store(0)
	_, err = flaky(5, &calls).WithRetry(2)(context.Background())
	if err == nil || err.Error() != "transient" {
		t.Errorf("expected last error, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}

func TestTask_WithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	task := Task(func(context.Context) (any, error) {
		calls.Add(1)
		cancel()
		return nil, errors.New("fail")
	}).WithRetry(5)

	_, err := task(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestTask_WithBackoff(t *testing.T) {
	clock := clockz.NewFakeClock()
	var calls atomic.Int32
	task := flaky(3, &calls).WithBackoff(3, time.Second, clock)

	type outcome struct {
		v   any
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := task(context.Background())
		done <- outcome{v, err}
	}()

	waitCalls := func(n int32) {
		t.Helper()
		deadline := time.Now().Add(time.Second)
		for calls.Load() < n {
			if time.Now().After(deadline) {
				t.Fatalf("expected %d calls, got %d", n, calls.Load())
			}
			time.Sleep(time.Millisecond)
		}
	}

	// Let the task arm its timer before moving the clock.
	waitCalls(1)
	time.Sleep(10 * time.Millisecond)
	clock.Advance(time.Second)
	clock.BlockUntilReady()
	waitCalls(2)

	// The second delay doubles.
	time.Sleep(10 * time.Millisecond)
	clock.Advance(time.Second)
	clock.BlockUntilReady()
	time.Sleep(10 * time.Millisecond)
	if calls.Load() != 2 {
		t.Fatalf("third attempt ran before the doubled delay, calls=%d", calls.Load())
	}
	clock.Advance(time.Second)
	clock.BlockUntilReady()

	select {
	case o := <-done:
		if o.err != nil || o.v != "ok" {
			t.Errorf("unexpected outcome %v %v", o.v, o.err)
		}
	case <-time.After(time.Second):
		t.Fatal("backoff never finished")
	}
}

func TestTask_WithBackoffHonorsContext(t *testing.T) {
	clock := clockz.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())

	task := Task(func(context.Context) (any, error) {
		return nil, errors.New("down")
	}).WithBackoff(3, time.Minute, clock)

	done := make(chan error, 1)
	go func() {
		_, err := task(ctx)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("backoff ignored cancellation")
	}
}

func TestTask_WithTimeout(t *testing.T) {
	clock := clockz.NewFakeClock()
	stopped := make(chan struct{})
	task := Task(func(ctx context.Context) (any, error) {
		<-ctx.Done()
		close(stopped)
		return nil, ctx.Err()
	}).WithTimeout(5*time.Second, clock)

	done := make(chan error, 1)
	go func() {
		_, err := task(context.Background())
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	clock.Advance(5 * time.Second)
	clock.BlockUntilReady()

	select {
	case err := <-done:
		if !errors.Is(err, ErrTaskTimeout) {
			t.Errorf("expected ErrTaskTimeout, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout never fired")
	}

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("task context not canceled after timeout")
	}
}

func TestTask_WithTimeoutFastTask(t *testing.T) {
	v, err := taskOf(7).WithTimeout(time.Second, nil)(context.Background())
	if err != nil || v != 7 {
		t.Errorf("expected 7, got %v %v", v, err)
	}
}

func TestTask_WithFallback(t *testing.T) {
	failing := Task(func(context.Context) (any, error) {
		return nil, errors.New("primary down")
	})

	v, err := failing.WithFallback(taskOf("cached"))(context.Background())
	if err != nil || v != "cached" {
		t.Errorf("expected fallback value, got %v %v", v, err)
	}

	v, err = taskOf("fresh").WithFallback(taskOf("cached"))(context.Background())
	if err != nil || v != "fresh" {
		t.Errorf("expected primary value, got %v %v", v, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var fellBack bool
	_, err = failing.WithFallback(func(context.Context) (any, error) {
		fellBack = true
		return nil, nil
	})(ctx)
	if err == nil || fellBack {
		t.Error("fallback must not run after cancellation")
	}
}

func TestTask_WithErrorHandler(t *testing.T) {
	var handled []error
	boom := errors.New("boom")

	task := Task(func(context.Context) (any, error) {
		return nil, boom
	}).WithErrorHandler(func(_ context.Context, err error) {
		handled = append(handled, err)
	})

	if _, err := task(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected error returned, got %v", err)
	}
	if len(handled) != 1 || handled[0] != boom {
		t.Errorf("expected handler called once, got %v", handled)
	}

	if _, err := taskOf(1).WithErrorHandler(func(context.Context, error) {
		t.Error("handler called on success")
	})(context.Background()); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}

func TestTask_ComposedInRun(t *testing.T) {
	store := newAsyncStore("COMPOSED")
	runner := NewRunner[*AsyncState](store, Config[*AsyncState]{})

	var calls atomic.Int32
	err := runner.RunAsync(context.Background(), AsyncConfig[*AsyncState]{
		Statuses: StatusesFor("COMPOSED"),
		Tasks: func(*AsyncState, Action) []Task {
			return []Task{flaky(2, &calls).WithRetry(2).WithTimeout(time.Second, nil)}
		},
	}, Action{Type: "COMPOSED"})
	if err != nil {
		t.Fatalf("RunAsync error = %v", err)
	}
	if store.State().Data != "ok" {
		t.Errorf("expected retried result, got %v (error %v)", store.State().Data, store.State().Error)
	}
}

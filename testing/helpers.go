// Package testing provides helpers for testing code built on reflux.
package testing

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/zoobzio/reflux"
)

// WaitFor polls a condition until it returns true or timeout is reached.
// Returns true if the condition was met, false if timeout occurred.
func WaitFor(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return condition()
}

// Recorder captures every action an Env dispatches, in dispatch order.
type Recorder struct {
	sub  *reflux.Subscription
	done chan struct{}

	mu      sync.Mutex
	actions []reflux.Action
}

// NewRecorder subscribes to env. The recorder sees every action dispatched
// after it returns. Close it when done.
func NewRecorder[S any](env reflux.Env[S], match func(reflux.Action) bool) *Recorder {
	r := &Recorder{
		sub:  env.Subscribe(match),
		done: make(chan struct{}),
	}
	go func() {
		defer close(r.done)
		for a := range r.sub.C() {
			r.mu.Lock()
			r.actions = append(r.actions, a)
			r.mu.Unlock()
		}
	}()
	return r
}

// Close stops recording.
func (r *Recorder) Close() {
	r.sub.Close()
	<-r.done
}

// Actions returns a copy of the recorded actions.
func (r *Recorder) Actions() []reflux.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.actions)
}

// Types returns the recorded action types.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, len(r.actions))
	for i, a := range r.actions {
		types[i] = a.Type
	}
	return types
}

// Count returns how many actions of type were recorded.
func (r *Recorder) Count(actionType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.actions {
		if a.Type == actionType {
			n++
		}
	}
	return n
}

// Last returns the most recent action of type.
func (r *Recorder) Last(actionType string) (reflux.Action, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.actions) - 1; i >= 0; i-- {
		if r.actions[i].Type == actionType {
			return r.actions[i], true
		}
	}
	return reflux.Action{}, false
}

// RequireTypes waits until the recorder holds exactly the given types in
// order, failing the test immediately otherwise.
func RequireTypes(t *testing.T, r *Recorder, timeout time.Duration, types ...string) {
	t.Helper()
	if !WaitFor(t, timeout, func() bool { return slices.Equal(r.Types(), types) }) {
		t.Fatalf("expected actions %v, got %v", types, r.Types())
	}
}

// Blocking returns a task that blocks until release is closed or its
// context ends. started is closed once the task runs.
func Blocking(started chan<- struct{}, release <-chan struct{}, result any) reflux.Task {
	var once sync.Once
	return func(ctx context.Context) (any, error) {
		once.Do(func() { close(started) })
		select {
		case <-release:
			return result, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Value returns a task that yields v immediately.
func Value(v any) reflux.Task {
	return func(context.Context) (any, error) {
		return v, nil
	}
}

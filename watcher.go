package reflux

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/zoobzio/capitan"
)

// TakeType selects how a watcher treats a trigger that arrives while an
// earlier run is still in flight.
type TakeType int

const (
	// TakeDefault defers to ListenOnceAtTime: leading when set, latest otherwise.
	TakeDefault TakeType = iota

	// TakeLatest cancels the in-flight run and starts a new one.
	TakeLatest

	// TakeLeading ignores triggers while a run is in flight.
	TakeLeading

	// TakeEvery starts a run for every trigger.
	TakeEvery
)

// String returns the string representation of the policy.
func (t TakeType) String() string {
	switch t {
	case TakeDefault:
		return "default"
	case TakeLatest:
		return "latest"
	case TakeLeading:
		return "leading"
	case TakeEvery:
		return "every"
	default:
		return "unknown"
	}
}

// WatcherConfig binds a run description to a trigger prefix.
type WatcherConfig[S any] struct {
	// ActionPrefix is the trigger action type and the prefix of every status.
	ActionPrefix string

	Tasks func(state S, root Action) []Task

	// Statuses overrides individual derived status names.
	Statuses Statuses

	// MapPendingToPayload adds fields on top of the trigger payload.
	MapPendingToPayload func(state S, root Action) Payload

	MapResultToPayload func(state S, root Action, results []any, raw []any) Payload
	MapFailToPayload   func(fc FailContext[S]) Payload

	ResetIfCanceled bool

	// ListenOnceAtTime selects the leading policy when TakeType is unset.
	ListenOnceAtTime bool

	TakeType TakeType

	RunInSequence bool
}

func (c WatcherConfig[S]) policy() TakeType {
	if c.TakeType != TakeDefault {
		return c.TakeType
	}
	if c.ListenOnceAtTime {
		return TakeLeading
	}
	return TakeLatest
}

// Watcher subscribes to a trigger prefix and starts a run per accepted
// trigger under its concurrency policy.
type Watcher[S any] struct {
	prefix string
	policy TakeType
	async  AsyncConfig[S]

	mu      sync.Mutex
	started bool
	wg      sync.WaitGroup
}

// NewAsyncWatcher creates a watcher for cfg.ActionPrefix. Statuses derive
// from the prefix and may be overridden individually. The PENDING payload is
// the trigger payload with the mapped fields laid over it.
func NewAsyncWatcher[S any](cfg WatcherConfig[S]) *Watcher[S] {
	mapPending := cfg.MapPendingToPayload

	return &Watcher[S]{
		prefix: cfg.ActionPrefix,
		policy: cfg.policy(),
		async: AsyncConfig[S]{
			Prefix:   cfg.ActionPrefix,
			Statuses: StatusesFor(cfg.ActionPrefix).Override(cfg.Statuses),
			Tasks:    cfg.Tasks,
			MapPendingToPayload: func(state S, root Action) Payload {
				if mapPending == nil {
					return root.Payload
				}
				mapped := mapPending(state, root)
				if root.Payload.Kind() != PayloadRecord && mapped.Kind() != PayloadRecord {
					return mapped
				}
				return root.Payload.Merge(mapped)
			},
			MapResultToPayload: cfg.MapResultToPayload,
			MapFailToPayload:   cfg.MapFailToPayload,
			ResetIfCanceled:    cfg.ResetIfCanceled,
			RunInSequence:      cfg.RunInSequence,
		},
	}
}

// NewAsyncPagingWatcher creates a watcher whose payloads feed a
// PagingReducer. PENDING carries the trigger payload with clear (default
// false) and firstOffset (default true) resolved; SUCCESS carries firstOffset
// plus either the mapped fields or the loaded items under data.
func NewAsyncPagingWatcher[S any](cfg WatcherConfig[S]) *Watcher[S] {
	mapPending := cfg.MapPendingToPayload
	mapResult := cfg.MapResultToPayload

	cfg.MapPendingToPayload = func(state S, root Action) Payload {
		p := RecordOf(Record{
			FieldClear:       root.Payload.Flag(FieldClear),
			FieldFirstOffset: firstOffset(root),
		})
		if mapPending != nil {
			p = p.Merge(mapPending(state, root))
		}
		return p
	}
	cfg.MapResultToPayload = func(state S, root Action, results []any, raw []any) Payload {
		p := RecordOf(Record{FieldFirstOffset: firstOffset(root)})
		if mapResult != nil {
			return p.Merge(mapResult(state, root, results, raw))
		}
		rec, _ := p.Record()
		rec[FieldData] = pageItems(results)
		return p
	}

	return NewAsyncWatcher(cfg)
}

// firstOffset reads the trigger's firstOffset flag, defaulting to true.
func firstOffset(root Action) bool {
	v, ok := root.Payload.Field(FieldFirstOffset)
	if !ok || v == nil {
		return true
	}
	return truthy(v)
}

// pageItems flattens the results of a paging run into one item list. A
// single result is used as is.
func pageItems(results []any) any {
	if len(results) == 1 {
		return results[0]
	}
	var items []any
	for _, res := range results {
		switch p := PayloadOf(res); p.Kind() {
		case PayloadSequence:
			seq, _ := p.Sequence()
			items = append(items, seq...)
		case PayloadNone:
		default:
			items = append(items, p.Value())
		}
	}
	if items == nil {
		items = []any{}
	}
	return items
}

// Prefix returns the trigger action type.
func (w *Watcher[S]) Prefix() string {
	return w.prefix
}

// TakeType returns the resolved concurrency policy.
func (w *Watcher[S]) TakeType() TakeType {
	return w.policy
}

// Config returns the run description used for every trigger.
func (w *Watcher[S]) Config() AsyncConfig[S] {
	return w.async
}

// Start subscribes to the trigger prefix and processes triggers until ctx is
// canceled. The subscription is in place when Start returns. Start can only
// be called once successfully.
func (w *Watcher[S]) Start(ctx context.Context, runner *Runner[S]) error {
	if w.prefix == "" {
		return fmt.Errorf("watcher requires an action prefix")
	}

	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return fmt.Errorf("watcher %s already started", w.prefix)
	}
	w.started = true
	w.mu.Unlock()

	// Triggers and CANCEL share one subscription so a CANCEL dispatched
	// right after a trigger is seen after that trigger's run is registered.
	cancelType := w.async.Statuses.withDefaults().Cancel
	sub := runner.Env().Subscribe(MatchTypes(w.prefix, cancelType))

	capitan.Emit(ctx, WatcherStarted,
		KeyActionType.Field(w.prefix),
		KeyTakeType.Field(w.policy.String()),
	)

	w.wg.Add(1)
	go w.loop(ctx, runner, sub, cancelType)
	return nil
}

// Wait blocks until the watcher loop and every run it started have exited.
func (w *Watcher[S]) Wait() {
	w.wg.Wait()
}

// inflight tracks the cancel channels of running runs. A CANCEL closes all
// of them.
type inflight struct {
	mu   sync.Mutex
	runs map[chan Action]struct{}
}

func (f *inflight) add() chan Action {
	ch := make(chan Action)
	f.mu.Lock()
	if f.runs == nil {
		f.runs = make(map[chan Action]struct{})
	}
	f.runs[ch] = struct{}{}
	f.mu.Unlock()
	return ch
}

func (f *inflight) remove(ch chan Action) {
	f.mu.Lock()
	delete(f.runs, ch)
	f.mu.Unlock()
}

func (f *inflight) cancelAll() {
	f.mu.Lock()
	for ch := range f.runs {
		close(ch)
	}
	f.runs = nil
	f.mu.Unlock()
}

func (w *Watcher[S]) loop(ctx context.Context, runner *Runner[S], sub *Subscription, cancelType string) {
	defer w.wg.Done()

	var (
		runs    sync.WaitGroup
		live    inflight
		busy    atomic.Bool
		current context.CancelFunc
		last    chan struct{}
	)

	// start registers the run's cancel channel before forking it.
	start := func(runCtx context.Context, a Action, after func()) {
		canceled := live.add()
		runs.Add(1)
		go func() {
			defer runs.Done()
			defer after()
			defer live.remove(canceled)
			_ = runner.runAsync(runCtx, w.async, a, canceled) //nolint:errcheck // failures travel through FAIL
		}()
	}

	defer func() {
		sub.Close()
		if current != nil {
			current()
		}
		runs.Wait()
		capitan.Emit(ctx, WatcherStopped,
			KeyActionType.Field(w.prefix),
			KeyTakeType.Field(w.policy.String()),
		)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case trigger, ok := <-sub.C():
			if !ok {
				return
			}

			if trigger.Type == cancelType && trigger.Type != w.prefix {
				live.cancelAll()
				continue
			}

			switch w.policy {
			case TakeLeading:
				if !busy.CompareAndSwap(false, true) {
					capitan.Emit(ctx, WatcherDropped,
						KeyActionType.Field(trigger.Type),
						KeyEntity.Field(trigger.Key),
					)
					continue
				}
				start(ctx, trigger, func() { busy.Store(false) })

			case TakeEvery:
				start(ctx, trigger, func() {})

			default:
				// Tear the previous run down completely so its RESET lands
				// before the next PENDING.
				if current != nil {
					current()
					<-last
				}
				runCtx, cancel := context.WithCancel(ctx)
				done := make(chan struct{})
				current, last = cancel, done
				start(runCtx, trigger, func() { close(done) })
			}
		}
	}
}

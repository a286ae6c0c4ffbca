package reflux

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// DefaultFailureHistorySize is the number of recent failures a Runner keeps.
const DefaultFailureHistorySize = 32

// Task is one injected unit of work.
type Task func(ctx context.Context) (any, error)

// FailContext is handed to AsyncConfig.MapFailToPayload.
type FailContext[S any] struct {
	// State is read after the failure.
	State S

	// Action is the triggering action.
	Action Action

	// Failure is the normalized failure.
	Failure Failure

	// Err is the raw error before normalization.
	Err error
}

// AsyncConfig describes one orchestration run.
type AsyncConfig[S any] struct {
	// Prefix labels the run on signals and metrics. Defaults to the
	// triggering action's type.
	Prefix string

	// Statuses names the actions the run emits and listens for. Success,
	// Fail and Cancel fall back to the ASYNC_* types when empty; Pending and
	// Reset are skipped when empty.
	Statuses Statuses

	// Tasks returns the injected units of work. They run after the HTTP
	// units declared on the triggering action.
	Tasks func(state S, root Action) []Task

	MapPendingToPayload func(state S, root Action) Payload

	// MapResultToPayload receives the transformed and the raw decoded results.
	MapResultToPayload func(state S, root Action, results []any, raw []any) Payload

	MapFailToPayload func(fc FailContext[S]) Payload

	// ResetIfCanceled dispatches RESET when the run is torn down before
	// settling.
	ResetIfCanceled bool

	// RunInSequence starts unit N+1 only after unit N settled.
	RunInSequence bool
}

func (c *AsyncConfig[S]) prefix(root Action) string {
	if c.Prefix != "" {
		return c.Prefix
	}
	return root.Type
}

// RunFailure records one failed run.
type RunFailure struct {
	RunID   string
	Type    string
	Key     string
	Failure Failure
	At      time.Time
}

// Runner orchestrates async runs against an Env. It is safe for concurrent
// use once configured.
type Runner[S any] struct {
	env      Env[S]
	config   Config[S]
	clock    clockz.Clock
	metrics  MetricsProvider
	failures *ring[RunFailure]
}

// NewRunner creates a Runner bound to env and config.
func NewRunner[S any](env Env[S], config Config[S]) *Runner[S] {
	return &Runner[S]{
		env:      env,
		config:   config,
		clock:    clockz.RealClock,
		metrics:  NoOpMetricsProvider{},
		failures: newRing[RunFailure](DefaultFailureHistorySize),
	}
}

// Clock sets the clock used for run durations and failure timestamps.
func (r *Runner[S]) Clock(clock clockz.Clock) *Runner[S] {
	r.clock = clock
	return r
}

// Metrics sets the metrics provider.
func (r *Runner[S]) Metrics(provider MetricsProvider) *Runner[S] {
	if provider == nil {
		provider = NoOpMetricsProvider{}
	}
	r.metrics = provider
	return r
}

// FailureHistorySize sets how many recent failures are kept. Zero disables
// the history.
func (r *Runner[S]) FailureHistorySize(n int) *Runner[S] {
	r.failures = newRing[RunFailure](n)
	return r
}

// FailureHistory returns recent failures, oldest first.
func (r *Runner[S]) FailureHistory() []RunFailure {
	return r.failures.all()
}

// ClearFailureHistory drops the recorded failures.
func (r *Runner[S]) ClearFailureHistory() {
	r.failures.clear()
}

// Env returns the environment the runner dispatches into.
func (r *Runner[S]) Env() Env[S] {
	return r.env
}

// run tracks the terminal outcome of one orchestration. A run settles at
// most once, and never after it was aborted.
type run struct {
	id     string
	root   Action
	start  time.Time
	cancel context.CancelFunc

	mu       sync.Mutex
	settled  bool
	canceled bool
	failed   *Action
}

// emit dispatches a non-terminal action unless the run was aborted.
func (ru *run) emit(ctx context.Context, fn func()) bool {
	ru.mu.Lock()
	defer ru.mu.Unlock()
	if ru.canceled || ctx.Err() != nil {
		ru.canceled = true
		return false
	}
	fn()
	return true
}

// settle dispatches the terminal action unless the run was aborted.
func (ru *run) settle(ctx context.Context, fn func()) bool {
	ru.mu.Lock()
	defer ru.mu.Unlock()
	if ru.settled || ru.canceled {
		return false
	}
	if ctx.Err() != nil {
		ru.canceled = true
		return false
	}
	ru.settled = true
	fn()
	return true
}

// abort tears the run down unless it already settled.
func (ru *run) abort() bool {
	ru.mu.Lock()
	if ru.settled {
		ru.mu.Unlock()
		return false
	}
	ru.canceled = true
	ru.mu.Unlock()
	ru.cancel()
	return true
}

func (ru *run) wasCanceled() bool {
	ru.mu.Lock()
	defer ru.mu.Unlock()
	return ru.canceled
}

// RunAsync orchestrates one run for root: PENDING, the units of work, then
// exactly one of SUCCESS or FAIL. A CANCEL action or the cancellation of ctx
// before the run settles tears the work down instead, optionally dispatching
// RESET. RunAsync returns after the work has fully exited. It returns
// ctx.Err() when ctx ended the run and nil otherwise; task failures travel
// through FAIL, never through the return value.
func (r *Runner[S]) RunAsync(ctx context.Context, cfg AsyncConfig[S], root Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg.Statuses = cfg.Statuses.withDefaults()

	sub := r.env.Subscribe(MatchTypes(cfg.Statuses.Cancel))
	defer sub.Close()

	return r.runAsync(ctx, cfg, root, sub.C())
}

// runAsync is RunAsync with the cancel source supplied by the caller. A value
// on canceled, or its close, aborts the run. Callers must open canceled
// before a CANCEL for root can be dispatched.
func (r *Runner[S]) runAsync(ctx context.Context, cfg AsyncConfig[S], root Action, canceled <-chan Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg.Statuses = cfg.Statuses.withDefaults()

	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ru := &run{
		id:     uuid.NewString(),
		root:   root,
		start:  r.clock.Now(),
		cancel: cancel,
	}

	// A CANCEL already queued wins before any work starts.
	select {
	case <-canceled:
		ru.abort()
	default:
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.work(workCtx, &cfg, ru)
	}()

	select {
	case <-done:
	case <-canceled:
		ru.abort()
		<-done
	case <-ctx.Done():
		ru.abort()
		<-done
	}

	// The work may observe ctx first and tear itself down.
	if ru.wasCanceled() && ctx.Err() != nil {
		return ctx.Err()
	}

	if ru.failed != nil && r.config.OnFail != nil {
		r.config.OnFail(ctx, &cfg, *ru.failed)
	}
	return nil
}

// work is the body of a run.
func (r *Runner[S]) work(ctx context.Context, cfg *AsyncConfig[S], ru *run) {
	root := ru.root
	prefix := cfg.prefix(root)

	capitan.Emit(ctx, RunStarted,
		KeyRunID.Field(ru.id),
		KeyActionType.Field(root.Type),
		KeyEntity.Field(root.Key),
	)
	r.metrics.OnRunStarted(prefix)

	err := r.execute(ctx, cfg, ru)
	if err != nil && !ru.wasCanceled() {
		r.fail(ctx, cfg, ru, prefix, err)
	}
	if ru.wasCanceled() {
		r.finishCanceled(cfg, ru, prefix)
	}
}

// execute runs PENDING, the hook, the units and SUCCESS. Any returned error
// becomes FAIL.
func (r *Runner[S]) execute(ctx context.Context, cfg *AsyncConfig[S], ru *run) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &TransportError{Cause: fmt.Errorf("panic: %v", p)}
		}
	}()

	root := ru.root
	state := r.env.State()

	if cfg.Statuses.Pending != "" {
		pending := Action{Type: cfg.Statuses.Pending, Key: root.Key}
		if cfg.MapPendingToPayload != nil {
			pending.Payload = cfg.MapPendingToPayload(state, root)
		}
		if !ru.emit(ctx, func() { r.env.Dispatch(pending) }) {
			return ErrCanceled
		}
		capitan.Emit(ctx, RunPending,
			KeyRunID.Field(ru.id),
			KeyActionType.Field(pending.Type),
		)
	}

	if r.config.Middle != nil {
		if err := r.config.Middle(ctx, cfg, state, root); err != nil {
			return err
		}
	}

	units, err := r.units(ctx, cfg, root)
	if err != nil {
		return err
	}

	results, err := r.runUnits(ctx, units, cfg.RunInSequence)
	if err != nil {
		return err
	}

	raw, err := r.decode(results)
	if err != nil {
		return err
	}

	transformed := r.transform(raw)

	state = r.env.State()
	var payload Payload
	switch {
	case cfg.MapResultToPayload != nil:
		payload = cfg.MapResultToPayload(state, root, transformed, raw)
	case len(transformed) == 1:
		payload = PayloadOf(transformed[0])
	default:
		payload = SequenceOf(transformed)
	}

	success := Action{Type: cfg.Statuses.Success, Payload: payload, Key: root.Key}
	if !ru.settle(ctx, func() { r.env.Dispatch(success) }) {
		return ErrCanceled
	}

	d := r.clock.Since(ru.start)
	capitan.Emit(ctx, RunSucceeded,
		KeyRunID.Field(ru.id),
		KeyActionType.Field(success.Type),
		KeyUnits.Field(len(units)),
		KeyDuration.Field(d),
	)
	r.metrics.OnRunSucceeded(cfg.prefix(root), d)
	return nil
}

// units builds the HTTP units declared on root followed by the injected tasks.
func (r *Runner[S]) units(ctx context.Context, cfg *AsyncConfig[S], root Action) ([]Task, error) {
	var units []Task

	if len(root.HTTP) > 0 {
		state := r.env.State()
		baseURL := ""
		if r.config.BaseURL != nil {
			baseURL = r.config.BaseURL(cfg, state, root)
		}
		for _, spec := range root.HTTP {
			req, err := r.buildRequest(ctx, cfg, state, root, baseURL, spec)
			if err != nil {
				return nil, err
			}
			units = append(units, r.httpTask(req))
		}
	}

	if cfg.Tasks != nil {
		units = append(units, cfg.Tasks(r.env.State(), root)...)
	}
	return units, nil
}

// runUnits executes units in order or all at once. In parallel mode the
// first failure cancels the remaining units.
func (r *Runner[S]) runUnits(ctx context.Context, units []Task, sequential bool) ([]any, error) {
	results := make([]any, len(units))

	if sequential {
		for i, unit := range units {
			v, err := callUnit(ctx, unit)
			if err != nil {
				closeRest(results[:i])
				return nil, err
			}
			results[i] = v
		}
		return results, nil
	}

	unitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	for i, unit := range units {
		wg.Add(1)
		go func(i int, unit Task) {
			defer wg.Done()
			v, err := callUnit(unitCtx, unit)
			if err != nil {
				once.Do(func() {
					firstErr = err
					cancel()
				})
				return
			}
			results[i] = v
		}(i, unit)
	}
	wg.Wait()

	if firstErr != nil {
		closeRest(results)
		return nil, firstErr
	}
	return results, nil
}

// callUnit runs one unit, converting panics and raw errors into
// TransportError and honoring ctx even when the unit ignores it. Responses
// from failed or abandoned units are closed.
func callUnit(ctx context.Context, unit Task) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type outcome struct {
		v   any
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				ch <- outcome{err: &TransportError{Cause: fmt.Errorf("panic: %v", p)}}
			}
		}()
		v, err := unit(ctx)
		ch <- outcome{v: v, err: err}
	}()

	select {
	case o := <-ch:
		if o.err != nil {
			closeRest([]any{o.v})
			var he *HTTPError
			var te *TransportError
			if errors.As(o.err, &he) || errors.As(o.err, &te) || errors.Is(o.err, context.Canceled) {
				return nil, o.err
			}
			return nil, &TransportError{Cause: o.err}
		}
		return o.v, nil
	case <-ctx.Done():
		// The unit may still hand back a response nobody will read.
		go func() {
			o := <-ch
			closeRest([]any{o.v})
		}()
		return nil, ctx.Err()
	}
}

// decode checks every HTTP result against the success status and decodes
// bodies. Other results pass through.
func (r *Runner[S]) decode(results []any) ([]any, error) {
	ok := r.config.successStatus()

	for _, res := range results {
		resp, isResp := res.(*http.Response)
		if !isResp || resp.StatusCode == ok {
			continue
		}
		body, err := decodeResponse(resp)
		if err != nil {
			body = nil
		}
		closeRest(results)
		return nil, &HTTPError{Message: failureMessage(body), Status: resp.StatusCode}
	}

	raw := make([]any, len(results))
	for i, res := range results {
		resp, isResp := res.(*http.Response)
		if !isResp {
			raw[i] = res
			continue
		}
		v, err := decodeResponse(resp)
		if err != nil {
			closeRest(results[i+1:])
			return nil, &TransportError{Cause: err}
		}
		raw[i] = v
	}

	if r.config.TransformFailResult != nil {
		for i, v := range raw {
			fields, failed := r.config.TransformFailResult(v)
			if !failed {
				continue
			}
			he := &HTTPError{Fields: fields, Message: failureMessage(fields)}
			if resp, isResp := results[i].(*http.Response); isResp {
				he.Status = resp.StatusCode
			}
			if s, ok := toFloat(fields[FieldStatus]); ok {
				he.Status = int(s)
			}
			return nil, he
		}
	}
	return raw, nil
}

func closeRest(results []any) {
	for _, res := range results {
		if resp, ok := res.(*http.Response); ok && resp.Body != nil {
			resp.Body.Close()
		}
	}
}

func (r *Runner[S]) transform(raw []any) []any {
	if r.config.TransformSuccessResult == nil {
		return raw
	}
	out := make([]any, len(raw))
	for i, v := range raw {
		out[i] = r.config.TransformSuccessResult(v, i, raw)
	}
	return out
}

// fail dispatches FAIL for err.
func (r *Runner[S]) fail(ctx context.Context, cfg *AsyncConfig[S], ru *run, prefix string, err error) {
	failure := AsFailure(err)
	if failure.Message == "" {
		failure.Message = DefaultFailureMessage
	}

	var payload Payload
	if cfg.MapFailToPayload != nil {
		payload = cfg.MapFailToPayload(FailContext[S]{
			State:   r.env.State(),
			Action:  ru.root,
			Failure: failure,
			Err:     err,
		})
	} else {
		payload = RecordOf(failureRecord(failure, err))
	}

	action := Action{Type: cfg.Statuses.Fail, Payload: payload, Key: ru.root.Key}
	if !ru.settle(ctx, func() { r.env.Dispatch(action) }) {
		return
	}
	ru.failed = &action

	d := r.clock.Since(ru.start)
	r.failures.push(RunFailure{
		RunID:   ru.id,
		Type:    action.Type,
		Key:     ru.root.Key,
		Failure: failure,
		At:      r.clock.Now(),
	})
	capitan.Emit(ctx, RunFailed,
		KeyRunID.Field(ru.id),
		KeyActionType.Field(action.Type),
		KeyStatus.Field(failure.Status),
		KeyError.Field(failure.Message),
		KeyDuration.Field(d),
	)
	r.metrics.OnRunFailed(prefix, failure.Status, d)
}

// failureRecord is the default FAIL payload: the normalized message and
// status, plus any fields a content-level failure flagged.
func failureRecord(f Failure, err error) Record {
	rec := Record{}
	var he *HTTPError
	if errors.As(err, &he) {
		for k, v := range he.Fields {
			rec[k] = v
		}
	}
	rec[FieldMessage] = f.Message
	if f.Status != 0 {
		rec[FieldStatus] = f.Status
	}
	return rec
}

// finishCanceled reports a torn-down run and dispatches RESET when asked to.
func (r *Runner[S]) finishCanceled(cfg *AsyncConfig[S], ru *run, prefix string) {
	ctx := context.Background()
	d := r.clock.Since(ru.start)

	capitan.Emit(ctx, RunCanceled,
		KeyRunID.Field(ru.id),
		KeyActionType.Field(ru.root.Type),
		KeyDuration.Field(d),
	)
	r.metrics.OnRunCanceled(prefix, d)

	if cfg.ResetIfCanceled && cfg.Statuses.Reset != "" {
		r.env.Dispatch(Action{Type: cfg.Statuses.Reset, Key: ru.root.Key})
		capitan.Emit(ctx, RunReset,
			KeyRunID.Field(ru.id),
			KeyActionType.Field(cfg.Statuses.Reset),
			KeyEntity.Field(ru.root.Key),
		)
	}
}

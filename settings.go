package reflux

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// DefaultDebounce is the default debounce duration for settings changes.
const DefaultDebounce = 100 * time.Millisecond

// Source observes a settings document and emits its raw bytes. It must emit
// the current document immediately when Watch is called.
type Source interface {
	// Watch begins observing and returns a channel of documents. The channel
	// is closed when ctx is canceled or the source fails for good.
	Watch(ctx context.Context) (<-chan []byte, error)
}

// HTTPSettings are the runtime-tunable HTTP knobs of a Runner.
type HTTPSettings struct {
	BaseURL string            `json:"base_url" yaml:"base_url" validate:"omitempty,url"`
	Headers map[string]string `json:"headers" yaml:"headers" validate:"dive,keys,required,endkeys"`
}

// Header returns the headers as an http.Header.
func (s HTTPSettings) Header() http.Header {
	h := make(http.Header, len(s.Headers))
	for k, v := range s.Headers {
		h.Set(k, v)
	}
	return h
}

// Settings loads HTTPSettings from a Source, keeps the last valid document
// current and rolls back to it when a change is rejected.
type Settings struct {
	source   Source
	debounce time.Duration
	syncMode bool
	clock    clockz.Clock
	codec    Codec
	metrics  MetricsProvider
	onChange func(prev, next HTTPSettings)

	state     atomic.Int32
	current   atomic.Pointer[HTTPSettings]
	lastError atomic.Pointer[error]
	errors    *ring[error]

	mu      sync.Mutex
	started bool

	// sync mode keeps the change channel for Process.
	changes <-chan []byte
}

// NewSettings creates Settings reading from source.
//
//	settings := reflux.NewSettings(reflux.NewFileWatcher("http.yaml"))
//	if err := settings.Start(ctx); err != nil {
//	    log.Printf("settings not loaded yet: %v", err)
//	}
//	runner := reflux.NewRunner(store, reflux.Config[State]{
//	    BaseURL: reflux.SettingsBaseURL[State](settings),
//	    Headers: reflux.SettingsHeaders[State](settings),
//	})
func NewSettings(source Source) *Settings {
	s := &Settings{
		source:   source,
		debounce: DefaultDebounce,
		clock:    clockz.RealClock,
		codec:    AutoCodec{},
		metrics:  NoOpMetricsProvider{},
	}
	s.state.Store(int32(StateLoading))
	return s
}

// Debounce sets how long changes are coalesced before processing.
func (s *Settings) Debounce(d time.Duration) *Settings {
	s.debounce = d
	return s
}

// SyncMode processes changes only through Process, without goroutines or
// debouncing.
func (s *Settings) SyncMode() *Settings {
	s.syncMode = true
	return s
}

// Clock sets the clock driving the debounce timer.
func (s *Settings) Clock(clock clockz.Clock) *Settings {
	s.clock = clock
	return s
}

// Codec sets the document codec. Defaults to AutoCodec.
func (s *Settings) Codec(codec Codec) *Settings {
	s.codec = codec
	return s
}

// Metrics sets the provider notified of state transitions.
func (s *Settings) Metrics(provider MetricsProvider) *Settings {
	if provider == nil {
		provider = NoOpMetricsProvider{}
	}
	s.metrics = provider
	return s
}

// ErrorHistorySize keeps the last n rejected changes.
func (s *Settings) ErrorHistorySize(n int) *Settings {
	s.errors = newRing[error](n)
	return s
}

// OnChange registers a callback invoked after valid settings are applied.
func (s *Settings) OnChange(fn func(prev, next HTTPSettings)) *Settings {
	s.onChange = fn
	return s
}

// State returns the current state.
func (s *Settings) State() SourceState {
	return SourceState(s.state.Load())
}

// Current returns the current valid settings and true, or the zero value and
// false before any valid document was applied.
func (s *Settings) Current() (HTTPSettings, bool) {
	ptr := s.current.Load()
	if ptr == nil {
		return HTTPSettings{}, false
	}
	return *ptr, true
}

// LastError returns the last rejection, or nil after a successful change.
func (s *Settings) LastError() error {
	ptr := s.lastError.Load()
	if ptr == nil {
		return nil
	}
	return *ptr
}

// ErrorHistory returns recent rejections, oldest first.
func (s *Settings) ErrorHistory() []error {
	return s.errors.all()
}

// Start begins watching. It blocks until the first document is processed and
// returns its error, if any, while watching continues in the background.
// In sync mode only the first document is processed; use Process for the
// rest. Start can only be called once.
func (s *Settings) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("settings already started")
	}
	s.started = true
	s.mu.Unlock()

	capitan.Emit(ctx, SettingsStarted,
		KeyDebounce.Field(s.debounce),
		KeyContentType.Field(s.codec.ContentType()),
	)

	changes, err := s.source.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to start source: %w", err)
	}

	var initialErr error
	select {
	case <-ctx.Done():
		return ctx.Err()
	case raw, ok := <-changes:
		if !ok {
			return fmt.Errorf("source closed before emitting initial settings")
		}
		capitan.Emit(ctx, SettingsChangeReceived)
		initialErr = s.process(ctx, raw)
	}

	if s.syncMode {
		s.changes = changes
		return initialErr
	}

	go s.watch(ctx, changes)
	return initialErr
}

// Process handles the next pending document in sync mode. It returns false
// when nothing is pending or outside sync mode.
func (s *Settings) Process(ctx context.Context) bool {
	if !s.syncMode {
		return false
	}

	select {
	case raw, ok := <-s.changes:
		if !ok {
			return false
		}
		capitan.Emit(ctx, SettingsChangeReceived)
		_ = s.process(ctx, raw) //nolint:errcheck // stored via reject
		return true
	default:
		return false
	}
}

func (s *Settings) process(ctx context.Context, raw []byte) error {
	oldState := s.State()

	var next HTTPSettings
	if err := s.codec.Unmarshal(raw, &next); err != nil {
		s.reject(ctx, oldState, err)
		capitan.Emit(ctx, SettingsDecodeFailed,
			KeyError.Field(err.Error()),
		)
		return fmt.Errorf("decode failed: %w", err)
	}

	if err := validate.Struct(next); err != nil {
		s.reject(ctx, oldState, err)
		capitan.Emit(ctx, SettingsValidationFailed,
			KeyError.Field(err.Error()),
		)
		return fmt.Errorf("validation failed: %w", err)
	}

	prev, _ := s.Current()
	s.current.Store(&next)
	s.lastError.Store(nil)
	s.transition(ctx, oldState, StateHealthy)
	capitan.Emit(ctx, SettingsApplied)

	if s.onChange != nil {
		s.onChange(prev, next)
	}
	return nil
}

// reject records err and moves to Empty or Degraded. The current settings
// are left untouched.
func (s *Settings) reject(ctx context.Context, oldState SourceState, err error) {
	e := err
	s.lastError.Store(&e)
	s.errors.push(err)

	next := StateDegraded
	if s.current.Load() == nil {
		next = StateEmpty
	}
	s.transition(ctx, oldState, next)
}

func (s *Settings) transition(ctx context.Context, oldState, newState SourceState) {
	if oldState == newState {
		return
	}
	s.state.Store(int32(newState))
	s.metrics.OnSourceStateChange(oldState, newState)
	capitan.Emit(ctx, SettingsStateChanged,
		KeyOldState.Field(oldState.String()),
		KeyNewState.Field(newState.String()),
	)
}

// watch processes changes with debouncing until ctx ends or the source closes.
func (s *Settings) watch(ctx context.Context, changes <-chan []byte) {
	defer func() {
		capitan.Emit(ctx, SettingsStopped,
			KeyState.Field(s.State().String()),
		)
	}()

	var (
		timer      clockz.Timer
		pending    []byte
		hasPending bool
	)

	for {
		var timerC <-chan time.Time
		if timer != nil {
			timerC = timer.C()
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case raw, ok := <-changes:
			if !ok {
				if hasPending {
					_ = s.process(ctx, pending) //nolint:errcheck // stored via reject
				}
				return
			}

			capitan.Emit(ctx, SettingsChangeReceived)
			pending = raw
			hasPending = true

			if timer == nil {
				timer = s.clock.NewTimer(s.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C():
					default:
					}
				}
				timer.Reset(s.debounce)
			}

		case <-timerC:
			if hasPending {
				_ = s.process(ctx, pending) //nolint:errcheck // stored via reject
				hasPending = false
			}
		}
	}
}

// SettingsBaseURL returns a Config.BaseURL selector reading the current
// settings on every run.
func SettingsBaseURL[S any](s *Settings) func(*AsyncConfig[S], S, Action) string {
	return func(_ *AsyncConfig[S], _ S, _ Action) string {
		cur, _ := s.Current()
		return cur.BaseURL
	}
}

// SettingsHeaders returns a Config.Headers selector reading the current
// settings on every run.
func SettingsHeaders[S any](s *Settings) func(*AsyncConfig[S], S, Action, HTTPRequest) http.Header {
	return func(_ *AsyncConfig[S], _ S, _ Action, _ HTTPRequest) http.Header {
		cur, _ := s.Current()
		return cur.Header()
	}
}

// Package reflux provides convention-driven async state containers for a
// unidirectional data flow store.
//
// Three concerns recur on every networked screen: naming the family of
// action types that belong to one async operation, folding those actions
// into a normalized state shape, and running the actual work with
// cancellation and error mapping. reflux standardizes all three.
//
// # Action Types
//
// Every logical resource is identified by a prefix. Suffixed types are derived
// and memoized per prefix:
//
//	reflux.TypeOf("FETCH_CART", reflux.SuffixPending) // "FETCH_CART_PENDING"
//	reflux.StatusesFor("FETCH_CART")                  // pending/success/fail/reset/cancel
//
// # Reducers
//
// AsyncReducer folds PENDING, SUCCESS, FAIL and RESET into an AsyncState
// (data, pending, error) with an optional keyed entity map. PagingReducer adds
// offset tracking, a has-more flag, refresh semantics and list mutations
// (ADD_FIRST, ADD_LAST, UPDATE, REPLACE, REMOVE).
//
// Both reducers return the same pointer when an action does not belong to
// them, so callers can skip work with a pointer comparison.
//
// # Runner
//
// A Runner executes one async operation per dispatched action:
//
//	PENDING → middle hook → HTTP requests and tasks → SUCCESS | FAIL
//
// The run races its own completion against a CANCEL action for the same
// prefix. When the cancel wins, the run is torn down and, if configured,
// a RESET is emitted instead of SUCCESS or FAIL.
//
// # Watchers
//
// A Watcher binds a Runner to one prefix with a dispatch policy:
//
//   - TakeLatest: cancel the in-flight run and start the new one (default)
//   - TakeLeading: ignore dispatches while a run is in flight
//   - TakeEvery: run every dispatch concurrently
//
// # Tasks
//
// A Task is one unit of work. Tasks compose with WithRetry, WithBackoff,
// WithTimeout, WithFallback and WithErrorHandler:
//
//	reflux.Task(api.FetchProfile).WithTimeout(5*time.Second, nil).WithRetry(3)
//
// # Settings
//
// Settings keeps the HTTP base URL and headers in a watched YAML or JSON
// document. Invalid changes are rejected and the last valid document stays
// current. SettingsBaseURL and SettingsHeaders plug it into a Config.
//
// # Example
//
//	store := reflux.NewStore(reflux.NewAsyncReducer("FETCH_PROFILE", nil, nil).Reduce, nil)
//	runner := reflux.NewRunner[*reflux.AsyncState](store, reflux.Config[*reflux.AsyncState]{})
//
//	watcher := reflux.NewAsyncWatcher(reflux.WatcherConfig[*reflux.AsyncState]{
//	    ActionPrefix: "FETCH_PROFILE",
//	    Tasks: func(_ *reflux.AsyncState, a reflux.Action) []reflux.Task {
//	        return []reflux.Task{api.FetchProfile}
//	    },
//	})
//	if err := watcher.Start(ctx, runner); err != nil {
//	    return err
//	}
//
//	store.Dispatch(reflux.FetchAction("FETCH_PROFILE", reflux.Payload{}))
//
// # Observability
//
// Run, watcher and settings lifecycles are emitted as capitan signals (see
// signals.go). Hook them to log or export:
//
//	capitan.Hook(reflux.RunFailed, func(_ context.Context, e *capitan.Event) {
//	    msg, _ := reflux.KeyError.From(e)
//	    log.Printf("run failed: %s", msg)
//	})
package reflux

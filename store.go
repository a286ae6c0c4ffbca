package reflux

import "sync"

// Env is the action and state environment a Runner works against. The state
// is read-only from the Runner's side; every change flows through Dispatch.
type Env[S any] interface {
	// State returns the current state.
	State() S

	// Dispatch reduces an action into the state and notifies subscribers.
	Dispatch(action Action)

	// Subscribe registers a filtered subscription. A nil filter matches
	// every action.
	Subscribe(match func(Action) bool) *Subscription
}

// Store is a minimal in-memory unidirectional data flow store. Dispatch is
// serialized: the reducer runs once per action and subscribers observe
// actions in dispatch order.
type Store[S any] struct {
	reduce ReduceFunc[S]

	dispatchMu sync.Mutex

	stateMu sync.RWMutex
	state   S

	subMu sync.Mutex
	subs  map[*Subscription]struct{}
}

// NewStore creates a store around a root reducer and its initial state.
func NewStore[S any](reduce ReduceFunc[S], initial S) *Store[S] {
	return &Store[S]{
		reduce: reduce,
		state:  initial,
		subs:   make(map[*Subscription]struct{}),
	}
}

// State returns the current state.
func (s *Store[S]) State() S {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// Dispatch reduces action into the state, then hands it to subscribers.
func (s *Store[S]) Dispatch(action Action) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	next := s.reduce(s.State(), action)

	s.stateMu.Lock()
	s.state = next
	s.stateMu.Unlock()

	s.subMu.Lock()
	subs := make([]*Subscription, 0, len(s.subs))
	for sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subMu.Unlock()

	for _, sub := range subs {
		sub.deliver(action)
	}
}

// Subscribe registers a filtered subscription. Close it when done.
func (s *Store[S]) Subscribe(match func(Action) bool) *Subscription {
	sub := newSubscription(match, s.unsubscribe)
	s.subMu.Lock()
	s.subs[sub] = struct{}{}
	s.subMu.Unlock()
	return sub
}

func (s *Store[S]) unsubscribe(sub *Subscription) {
	s.subMu.Lock()
	delete(s.subs, sub)
	s.subMu.Unlock()
}

var _ Env[any] = (*Store[any])(nil)

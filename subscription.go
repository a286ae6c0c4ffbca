package reflux

import "sync"

// Subscription receives the actions of a store that match its filter, in
// dispatch order. Delivery never blocks the dispatcher: matched actions are
// queued and pumped to C by a dedicated goroutine.
type Subscription struct {
	match   func(Action) bool
	onClose func(*Subscription)

	mu     sync.Mutex
	queue  []Action
	notify chan struct{}
	out    chan Action
	done   chan struct{}
	once   sync.Once
}

func newSubscription(match func(Action) bool, onClose func(*Subscription)) *Subscription {
	s := &Subscription{
		match:   match,
		onClose: onClose,
		notify:  make(chan struct{}, 1),
		out:     make(chan Action),
		done:    make(chan struct{}),
	}
	go s.pump()
	return s
}

// C returns the channel of matched actions. It is closed after Close.
func (s *Subscription) C() <-chan Action {
	return s.out
}

// Close stops delivery and releases the subscription.
func (s *Subscription) Close() {
	s.once.Do(func() {
		close(s.done)
		if s.onClose != nil {
			s.onClose(s)
		}
	})
}

func (s *Subscription) deliver(a Action) {
	if s.match != nil && !s.match(a) {
		return
	}
	s.mu.Lock()
	s.queue = append(s.queue, a)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Subscription) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-s.notify:
				continue
			case <-s.done:
				return
			}
		}
		a := s.queue[0]
		s.queue[0] = Action{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- a:
		case <-s.done:
			return
		}
	}
}

// MatchTypes returns a filter accepting the given action types. Empty names
// never match.
func MatchTypes(types ...string) func(Action) bool {
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		if t != "" {
			set[t] = struct{}{}
		}
	}
	return func(a Action) bool {
		_, ok := set[a.Type]
		return ok
	}
}

package reflux

// ReduceFunc folds an action into a state value.
type ReduceFunc[S any] func(state S, action Action) S

// AsyncState is the normalized shape of one async resource.
type AsyncState struct {
	Data    any
	Pending bool
	Error   any

	// Fields holds extra payload fields merged by PENDING, SUCCESS and FAIL.
	Fields Record

	// Entities holds keyed sub-resources addressed by Action.Key.
	Entities map[string]*AsyncState
}

// Entity returns the keyed sub-state for key.
func (s *AsyncState) Entity(key string) (*AsyncState, bool) {
	if s == nil || s.Entities == nil {
		return nil, false
	}
	e, ok := s.Entities[key]
	return e, ok
}

// Field returns an extra field merged into the state.
func (s *AsyncState) Field(name string) (any, bool) {
	if s == nil || s.Fields == nil {
		return nil, false
	}
	v, ok := s.Fields[name]
	return v, ok
}

func (s *AsyncState) clone() *AsyncState {
	out := *s
	out.Fields = s.Fields.Clone()
	if s.Entities != nil {
		out.Entities = make(map[string]*AsyncState, len(s.Entities))
		for k, v := range s.Entities {
			out.Entities[k] = v
		}
	}
	return &out
}

// deepClone copies the state including every entity.
func (s *AsyncState) deepClone() *AsyncState {
	out := s.clone()
	for k, v := range out.Entities {
		out.Entities[k] = v.deepClone()
	}
	return out
}

// assign merges payload fields into Fields. Fields named after state
// members are left to the transition.
func (s *AsyncState) assign(r Record) {
	for k, v := range r {
		switch k {
		case FieldData, FieldError, "pending":
			continue
		}
		if s.Fields == nil {
			s.Fields = Record{}
		}
		s.Fields[k] = v
	}
}

// AsyncReducer folds PENDING, SUCCESS, FAIL and RESET of one prefix into an
// AsyncState.
type AsyncReducer struct {
	prefix  string
	pending string
	success string
	fail    string
	reset   string
	extra   ReduceFunc[*AsyncState]
	initial *AsyncState
}

// NewAsyncReducer creates a reducer bound to prefix. extra handles every
// other action type and may be nil. initial may be nil for the default
// {Data: nil, Pending: false, Error: nil}.
func NewAsyncReducer(prefix string, extra ReduceFunc[*AsyncState], initial *AsyncState) *AsyncReducer {
	if initial == nil {
		initial = &AsyncState{}
	}
	return &AsyncReducer{
		prefix:  prefix,
		pending: TypeOf(prefix, SuffixPending),
		success: TypeOf(prefix, SuffixSuccess),
		fail:    TypeOf(prefix, SuffixFail),
		reset:   TypeOf(prefix, SuffixReset),
		extra:   extra,
		initial: initial.deepClone(),
	}
}

// Prefix returns the bound action type prefix.
func (r *AsyncReducer) Prefix() string {
	return r.prefix
}

// Initial returns a fresh copy of the bound initial state.
func (r *AsyncReducer) Initial() *AsyncState {
	return r.initial.deepClone()
}

// Reduce applies action to state. A nil state starts from Initial. Actions
// outside the prefix go to the extra reducer, or return state unchanged.
func (r *AsyncReducer) Reduce(state *AsyncState, action Action) *AsyncState {
	if state == nil {
		state = r.Initial()
	}

	switch action.Type {
	case r.pending:
		return r.scoped(state, action.Key, func(s *AsyncState) {
			applyPending(s, action.Payload)
		})
	case r.success:
		return r.scoped(state, action.Key, func(s *AsyncState) {
			applySuccess(s, action.Payload)
		})
	case r.fail:
		return r.scoped(state, action.Key, func(s *AsyncState) {
			applyFail(s, action.Payload)
		})
	case r.reset:
		return r.resetScope(state, action.Key)
	default:
		if r.extra != nil {
			return r.extra(state, action)
		}
		return state
	}
}

// scoped copies state and applies fn to the root or to the keyed entity,
// materializing a default entity on first use.
func (r *AsyncReducer) scoped(state *AsyncState, key string, fn func(*AsyncState)) *AsyncState {
	next := state.clone()
	if key == "" {
		fn(next)
		return next
	}

	if next.Entities == nil {
		next.Entities = make(map[string]*AsyncState)
	}
	entity, ok := next.Entities[key]
	if ok {
		entity = entity.clone()
	} else {
		entity = &AsyncState{}
	}
	fn(entity)
	next.Entities[key] = entity
	return next
}

func (r *AsyncReducer) resetScope(state *AsyncState, key string) *AsyncState {
	switch key {
	case "":
		// Keyed entities survive; WildcardKey drops them.
		next := r.Initial()
		if len(state.Entities) > 0 {
			next.Entities = make(map[string]*AsyncState, len(state.Entities))
			for k, v := range state.Entities {
				next.Entities[k] = v
			}
		}
		return next
	case WildcardKey:
		next := state.clone()
		next.Entities = nil
		return next
	default:
		next := state.clone()
		delete(next.Entities, key)
		return next
	}
}

func applyPending(s *AsyncState, p Payload) {
	if rec, ok := p.Record(); ok {
		if truthy(rec[FieldClear]) {
			s.Data = nil
		}
		s.assign(rec.Without(FieldClear))
	}
	s.Pending = true
}

func applySuccess(s *AsyncState, p Payload) {
	switch p.Kind() {
	case PayloadRecord:
		rec, _ := p.Record()
		if data, ok := rec[FieldData]; ok && data != nil {
			s.assign(rec.Without(FieldData))
			s.Data = data
		} else {
			s.Data = rec.Without(FieldData)
		}
	default:
		s.Data = p.Value()
	}
	s.Error = nil
	s.Pending = false
}

func applyFail(s *AsyncState, p Payload) {
	s.Error = failValue(p, s.assign)
	s.Pending = false
}

// failValue extracts the error value of a FAIL payload. A record carrying an
// error field merges its remaining fields through assign.
func failValue(p Payload, assign func(Record)) any {
	if rec, ok := p.Record(); ok {
		if e, ok := rec[FieldError]; ok && e != nil {
			assign(rec.Without(FieldError))
			return e
		}
		return rec.Without(FieldError)
	}
	return p.Value()
}

package reflux

import "sort"

// BatchEntry declares one setter reducer of a batch.
type BatchEntry struct {
	// Type is the action type whose payload replaces the state.
	Type string

	// Initial is the state before the first matching action.
	Initial any
}

// SetterReducer replaces its state with the payload of one action type.
type SetterReducer struct {
	actionType string
	initial    any
}

// Initial returns the state before the first matching action.
func (r *SetterReducer) Initial() any {
	return r.initial
}

// Reduce returns the action payload value for the bound type, or state.
func (r *SetterReducer) Reduce(state any, action Action) any {
	if action.Type == r.actionType {
		return action.Payload.Value()
	}
	return state
}

// NewReducerBatch builds one setter reducer per entry:
//
//	reducers := reflux.NewReducerBatch(map[string]reflux.BatchEntry{
//	    "mute":    {Type: "SET_MUTE", Initial: false},
//	    "profile": {Type: "SET_PROFILE", Initial: reflux.Record{"name": ""}},
//	})
func NewReducerBatch(entries map[string]BatchEntry) map[string]*SetterReducer {
	out := make(map[string]*SetterReducer, len(entries))
	for name, e := range entries {
		out[name] = &SetterReducer{actionType: e.Type, initial: e.Initial}
	}
	return out
}

// GroupNode declares one member of a ReducerGroup.
type GroupNode struct {
	// Type is the action type that updates this member.
	Type string

	// Initial is the member value in the group's initial state.
	Initial any

	// OnUpdate computes the new member value from the whole group state.
	// When nil the action payload value is stored.
	OnUpdate func(state Record, action Action) any
}

// GroupReset declares the action that restores a ReducerGroup.
type GroupReset struct {
	Type string

	// OnUpdate computes the group state after reset. When nil every member
	// returns to its initial value.
	OnUpdate func(state Record, action Action) Record
}

// ReducerGroup manages several named values inside one record state.
type ReducerGroup struct {
	names []string
	nodes map[string]GroupNode
	reset *GroupReset
}

// NewReducerGroup creates a group from its members and an optional reset.
// When several members share an action type, the first by name wins.
func NewReducerGroup(nodes map[string]GroupNode, reset *GroupReset) *ReducerGroup {
	names := make([]string, 0, len(nodes))
	copied := make(map[string]GroupNode, len(nodes))
	for name, n := range nodes {
		names = append(names, name)
		copied[name] = n
	}
	sort.Strings(names)
	return &ReducerGroup{names: names, nodes: copied, reset: reset}
}

// Initial returns the group state built from member initial values.
func (g *ReducerGroup) Initial() Record {
	out := make(Record, len(g.names))
	for _, name := range g.names {
		out[name] = g.nodes[name].Initial
	}
	return out
}

// Reduce applies action to the group state. A nil state starts from Initial.
func (g *ReducerGroup) Reduce(state Record, action Action) Record {
	if state == nil {
		state = g.Initial()
	}

	for _, name := range g.names {
		node := g.nodes[name]
		if node.Type != action.Type {
			continue
		}
		next := state.Clone()
		if node.OnUpdate != nil {
			next[name] = node.OnUpdate(state, action)
		} else {
			next[name] = action.Payload.Value()
		}
		return next
	}

	if g.reset != nil && g.reset.Type == action.Type {
		if g.reset.OnUpdate != nil {
			return g.reset.OnUpdate(state, action)
		}
		next := state.Clone()
		for _, name := range g.names {
			next[name] = g.nodes[name].Initial
		}
		return next
	}

	return state
}

// AsyncReducerSpec declares one reducer of an async group.
type AsyncReducerSpec struct {
	Prefix  string
	Extra   ReduceFunc[*AsyncState]
	Initial *AsyncState
}

// NewAsyncReducerGroup builds named async reducers from a declarative spec.
func NewAsyncReducerGroup(specs map[string]AsyncReducerSpec) map[string]*AsyncReducer {
	out := make(map[string]*AsyncReducer, len(specs))
	for name, s := range specs {
		out[name] = NewAsyncReducer(s.Prefix, s.Extra, s.Initial)
	}
	return out
}

// PagingReducerSpec declares one reducer of a paging group.
type PagingReducerSpec struct {
	Prefix  string
	Extra   ReduceFunc[*PagingState]
	Initial *PagingState
}

// NewAsyncPagingReducerGroup builds named paging reducers from a declarative
// spec.
func NewAsyncPagingReducerGroup(specs map[string]PagingReducerSpec) map[string]*PagingReducer {
	out := make(map[string]*PagingReducer, len(specs))
	for name, s := range specs {
		out[name] = NewAsyncPagingReducer(s.Prefix, s.Extra, s.Initial)
	}
	return out
}

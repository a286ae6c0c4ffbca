package reflux

import (
	"fmt"
	"sync"
)

// Suffix is one member of the family of action types derived from a prefix.
type Suffix int

const (
	SuffixPending Suffix = iota
	SuffixSuccess
	SuffixFail
	SuffixReset
	SuffixCancel
	SuffixRemove
	SuffixUpdate
	SuffixAddFirst
	SuffixAddLast
	SuffixReplace

	suffixCount
)

var suffixNames = [suffixCount]string{
	SuffixPending:  "PENDING",
	SuffixSuccess:  "SUCCESS",
	SuffixFail:     "FAIL",
	SuffixReset:    "RESET",
	SuffixCancel:   "CANCEL",
	SuffixRemove:   "REMOVE",
	SuffixUpdate:   "UPDATE",
	SuffixAddFirst: "ADD_FIRST",
	SuffixAddLast:  "ADD_LAST",
	SuffixReplace:  "REPLACE",
}

// String returns the upper-case suffix name appended to prefixes.
func (s Suffix) String() string {
	if s < 0 || s >= suffixCount {
		return "UNKNOWN"
	}
	return suffixNames[s]
}

// typeRegistry memoizes derived action types per prefix. Entries are created
// lazily and never evicted.
type typeRegistry struct {
	mu      sync.RWMutex
	entries map[string]*[suffixCount]string
}

var registry = &typeRegistry{entries: make(map[string]*[suffixCount]string)}

func (r *typeRegistry) lookup(prefix string, s Suffix) string {
	r.mu.RLock()
	if set, ok := r.entries[prefix]; ok && set[s] != "" {
		t := set[s]
		r.mu.RUnlock()
		return t
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.entries[prefix]
	if !ok {
		set = new([suffixCount]string)
		r.entries[prefix] = set
	}
	if set[s] == "" {
		set[s] = prefix + "_" + suffixNames[s]
	}
	return set[s]
}

// TypeOf returns the action type for prefix and suffix, formatted as
// PREFIX_SUFFIX. Results are cached per prefix. Passing a Suffix outside the
// declared constants is a programming error and panics.
func TypeOf(prefix string, s Suffix) string {
	if s < 0 || s >= suffixCount {
		panic(fmt.Sprintf("reflux: unknown action type suffix %d", int(s)))
	}
	return registry.lookup(prefix, s)
}

// Statuses names the action types a Runner emits and listens for.
type Statuses struct {
	Pending string
	Success string
	Fail    string
	Reset   string
	Cancel  string
}

// StatusesFor derives the five run statuses of a prefix.
func StatusesFor(prefix string) Statuses {
	return Statuses{
		Pending: TypeOf(prefix, SuffixPending),
		Success: TypeOf(prefix, SuffixSuccess),
		Fail:    TypeOf(prefix, SuffixFail),
		Reset:   TypeOf(prefix, SuffixReset),
		Cancel:  TypeOf(prefix, SuffixCancel),
	}
}

// Override returns s with every non-empty field of o applied on top.
func (s Statuses) Override(o Statuses) Statuses {
	if o.Pending != "" {
		s.Pending = o.Pending
	}
	if o.Success != "" {
		s.Success = o.Success
	}
	if o.Fail != "" {
		s.Fail = o.Fail
	}
	if o.Reset != "" {
		s.Reset = o.Reset
	}
	if o.Cancel != "" {
		s.Cancel = o.Cancel
	}
	return s
}

// DefaultPrefix supplies the success, fail and cancel types of a run whose
// statuses leave them empty.
const DefaultPrefix = "ASYNC"

// withDefaults fills the statuses a run cannot work without.
func (s Statuses) withDefaults() Statuses {
	base := StatusesFor(DefaultPrefix)
	if s.Success == "" {
		s.Success = base.Success
	}
	if s.Fail == "" {
		s.Fail = base.Fail
	}
	if s.Cancel == "" {
		s.Cancel = base.Cancel
	}
	return s
}

// AsyncTypes is the basic pending/success/fail triple of a prefix.
type AsyncTypes struct {
	Pending string
	Success string
	Fail    string
}

// AsyncTypesFor derives the basic triple of a prefix.
func AsyncTypesFor(prefix string) AsyncTypes {
	return AsyncTypes{
		Pending: TypeOf(prefix, SuffixPending),
		Success: TypeOf(prefix, SuffixSuccess),
		Fail:    TypeOf(prefix, SuffixFail),
	}
}

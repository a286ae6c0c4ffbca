package reflux

import (
	"encoding/json"
	"math"
	"reflect"
)

// PagingState is the normalized shape of an offset-paginated list resource.
type PagingState struct {
	Data       []Record
	Offset     int
	Pending    bool
	Refreshing bool
	Error      any
	HasMore    bool

	// Fields holds extra payload fields merged by PENDING, SUCCESS and FAIL.
	Fields Record
}

// DefaultPagingState returns an empty list that expects more items.
func DefaultPagingState() *PagingState {
	return &PagingState{Data: []Record{}, HasMore: true}
}

// Field returns an extra field merged into the state.
func (s *PagingState) Field(name string) (any, bool) {
	if s == nil || s.Fields == nil {
		return nil, false
	}
	v, ok := s.Fields[name]
	return v, ok
}

// IndexOf returns the position of the item with the given id, or -1.
func (s *PagingState) IndexOf(id any) int {
	for i, item := range s.Data {
		if idEqual(item[FieldID], id) {
			return i
		}
	}
	return -1
}

func (s *PagingState) clone() *PagingState {
	out := *s
	out.Fields = s.Fields.Clone()
	if s.Data == nil {
		out.Data = []Record{}
	} else {
		out.Data = make([]Record, len(s.Data))
		copy(out.Data, s.Data)
	}
	return &out
}

func (s *PagingState) assign(r Record) {
	for k, v := range r {
		switch k {
		case FieldData, FieldError, "offset", "pending", "refreshing", "hasMore":
			continue
		}
		if s.Fields == nil {
			s.Fields = Record{}
		}
		s.Fields[k] = v
	}
}

// PagingReducer folds the paging action family of one prefix into a
// PagingState.
type PagingReducer struct {
	prefix   string
	pending  string
	success  string
	fail     string
	reset    string
	update   string
	addFirst string
	addLast  string
	replace  string
	remove   string
	extra    ReduceFunc[*PagingState]
	initial  *PagingState
}

// NewAsyncPagingReducer creates a paging reducer bound to prefix. extra and
// initial may be nil; the default initial state is DefaultPagingState.
func NewAsyncPagingReducer(prefix string, extra ReduceFunc[*PagingState], initial *PagingState) *PagingReducer {
	if initial == nil {
		initial = DefaultPagingState()
	}
	return &PagingReducer{
		prefix:   prefix,
		pending:  TypeOf(prefix, SuffixPending),
		success:  TypeOf(prefix, SuffixSuccess),
		fail:     TypeOf(prefix, SuffixFail),
		reset:    TypeOf(prefix, SuffixReset),
		update:   TypeOf(prefix, SuffixUpdate),
		addFirst: TypeOf(prefix, SuffixAddFirst),
		addLast:  TypeOf(prefix, SuffixAddLast),
		replace:  TypeOf(prefix, SuffixReplace),
		remove:   TypeOf(prefix, SuffixRemove),
		extra:    extra,
		initial:  initial.clone(),
	}
}

// Prefix returns the bound action type prefix.
func (r *PagingReducer) Prefix() string {
	return r.prefix
}

// Initial returns a fresh copy of the bound initial state.
func (r *PagingReducer) Initial() *PagingState {
	out := r.initial.clone()
	for i, item := range out.Data {
		out.Data[i] = item.Clone()
	}
	return out
}

// Reduce applies action to state. A nil state starts from Initial. Actions
// outside the prefix go to the extra reducer, or return state unchanged.
func (r *PagingReducer) Reduce(state *PagingState, action Action) *PagingState {
	if state == nil {
		state = r.Initial()
	}

	switch action.Type {
	case r.pending:
		return pagingPending(state.clone(), action.Payload)
	case r.success:
		return pagingSuccess(state.clone(), action.Payload)
	case r.fail:
		next := state.clone()
		next.Error = failValue(action.Payload, next.assign)
		next.Pending = false
		next.Refreshing = false
		return next
	case r.addLast:
		next := state.clone()
		if item, ok := action.Payload.Record(); ok {
			next.Data = append(next.Data, item)
			next.Offset++
		}
		return next
	case r.addFirst:
		next := state.clone()
		if item, ok := action.Payload.Record(); ok {
			next.Data = append([]Record{item}, next.Data...)
			next.Offset++
		}
		return next
	case r.update:
		next := state.clone()
		if item, ok := action.Payload.Record(); ok {
			if i := next.IndexOf(item[FieldID]); i >= 0 {
				next.Data[i] = item.Clone()
			}
		}
		return next
	case r.replace:
		next := state.clone()
		if rec, ok := action.Payload.Record(); ok {
			if item, ok := asRecord(rec[FieldData]); ok {
				if i := next.IndexOf(rec[FieldID]); i >= 0 {
					next.Data[i] = item
				}
			}
		}
		return next
	case r.remove:
		next := state.clone()
		if i := next.IndexOf(action.Payload.Value()); i >= 0 {
			next.Data = append(next.Data[:i], next.Data[i+1:]...)
			next.Offset--
		}
		return next
	case r.reset:
		return r.Initial()
	default:
		if r.extra != nil {
			return r.extra(state, action)
		}
		return state
	}
}

func pagingPending(s *PagingState, p Payload) *PagingState {
	rec, _ := p.Record()
	clearData := truthy(rec[FieldClear])
	firstOffset := truthy(rec[FieldFirstOffset])

	if clearData {
		s.Data = []Record{}
		s.Offset = 0
	}
	s.assign(rec.Without(FieldClear, FieldFirstOffset))
	if !clearData && firstOffset {
		s.Refreshing = true
	}
	s.Pending = true
	s.HasMore = true
	return s
}

func pagingSuccess(s *PagingState, p Payload) *PagingState {
	var (
		rec         Record
		items       []Record
		firstOffset bool
	)
	switch p.Kind() {
	case PayloadRecord:
		rec, _ = p.Record()
		items = asRecords(rec[FieldData])
		firstOffset = truthy(rec[FieldFirstOffset])
	case PayloadSequence:
		seq, _ := p.Sequence()
		items = asRecords(seq)
	}

	if firstOffset {
		s.Data = append([]Record{}, items...)
		s.Offset = len(items)
	} else {
		s.Data = append(s.Data, items...)
		s.Offset += len(items)
	}
	s.HasMore = len(items) > 0
	s.Error = nil
	s.assign(rec.Without(FieldData, FieldFirstOffset))
	s.Pending = false
	s.Refreshing = false
	return s
}

func asRecord(v any) (Record, bool) {
	switch val := v.(type) {
	case Record:
		return val, true
	case map[string]any:
		return Record(val), true
	default:
		return nil, false
	}
}

// asRecords coerces a page of items. Anything that is not a list yields an
// empty page. Every list member becomes one item: structs and typed maps go
// through JSON, and scalars are wrapped as {id: value}.
func asRecords(v any) []Record {
	switch val := v.(type) {
	case nil:
		return nil
	case []Record:
		return append([]Record(nil), val...)
	case Payload:
		seq, _ := val.Sequence()
		return asRecords(seq)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	items := make([]Record, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		items = append(items, toItem(rv.Index(i).Interface()))
	}
	return items
}

func toItem(x any) Record {
	if r, ok := asRecord(x); ok {
		return r
	}
	switch reflect.Indirect(reflect.ValueOf(x)).Kind() {
	case reflect.Struct, reflect.Map:
		if raw, err := json.Marshal(x); err == nil {
			var r Record
			if (JSONCodec{}).Unmarshal(raw, &r) == nil && r != nil {
				return r
			}
		}
	}
	return Record{FieldID: x}
}

// idEqual compares item ids, treating numbers of different Go types as equal
// when their values match. JSON-decoded ids arrive as float64.
func idEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
		return false
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		if math.IsNaN(n) {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

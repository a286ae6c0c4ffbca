package reflux

// ResetAction builds a RESET for prefix. An optional key targets one entity,
// or every entity with WildcardKey.
func ResetAction(prefix string, key ...string) Action {
	a := Action{Type: TypeOf(prefix, SuffixReset)}
	if len(key) > 0 {
		a.Key = key[0]
	}
	return a
}

// CancelAction builds a CANCEL for prefix.
func CancelAction(prefix string) Action {
	return Action{Type: TypeOf(prefix, SuffixCancel)}
}

// RemoveAction builds a REMOVE carrying the id of the item to drop.
func RemoveAction(prefix string, id any) Action {
	return Action{Type: TypeOf(prefix, SuffixRemove), Payload: ScalarOf(id)}
}

// UpdateAction builds an UPDATE carrying the item that replaces the one with
// the same id.
func UpdateAction(prefix string, item Record) Action {
	return Action{Type: TypeOf(prefix, SuffixUpdate), Payload: RecordOf(item)}
}

// ReplaceAction builds a REPLACE that overwrites the item with id by item.
func ReplaceAction(prefix string, id any, item Record) Action {
	return Action{
		Type:    TypeOf(prefix, SuffixReplace),
		Payload: RecordOf(Record{FieldID: id, FieldData: item}),
	}
}

// AddFirstAction builds an ADD_FIRST prepending item.
func AddFirstAction(prefix string, item Record) Action {
	return Action{Type: TypeOf(prefix, SuffixAddFirst), Payload: RecordOf(item)}
}

// AddLastAction builds an ADD_LAST appending item.
func AddLastAction(prefix string, item Record) Action {
	return Action{Type: TypeOf(prefix, SuffixAddLast), Payload: RecordOf(item)}
}

// FetchAction builds the triggering action watched by a Watcher for prefix.
func FetchAction(prefix string, payload Payload) Action {
	return Action{Type: prefix, Payload: payload}
}

// HTTPFetchAction builds a triggering action carrying declarative requests.
func HTTPFetchAction(prefix string, payload Payload, requests ...HTTPRequest) Action {
	return Action{Type: prefix, Payload: payload, HTTP: requests}
}

// PagingParams describes the page requested by a paging fetch.
type PagingParams struct {
	// Clear drops loaded items and resets the offset when the run starts.
	Clear bool

	// FirstOffset marks a first-page load: loaded items are replaced on
	// success instead of appended.
	FirstOffset bool

	// Extra fields travel with the payload, e.g. a page size.
	Extra Record
}

// PagingFetchAction builds a triggering action for a paging watcher.
func PagingFetchAction(prefix string, params PagingParams) Action {
	r := params.Extra.Clone()
	if r == nil {
		r = Record{}
	}
	r[FieldClear] = params.Clear
	r[FieldFirstOffset] = params.FirstOffset
	return Action{Type: prefix, Payload: RecordOf(r)}
}

// WithKey returns a copy of a scoped to the keyed entity key.
func WithKey(a Action, key string) Action {
	a.Key = key
	return a
}

package reflux

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loaded(items ...Record) *PagingState {
	s := DefaultPagingState()
	s.Data = items
	s.Offset = len(items)
	return s
}

func TestPagingReducer_UnrelatedReturnsSameState(t *testing.T) {
	r := NewAsyncPagingReducer("FEED", nil, nil)
	state := loaded(Record{"id": 1})

	assert.Same(t, state, r.Reduce(state, Action{Type: "UNRELATED"}))
}

func TestPagingReducer_PendingClear(t *testing.T) {
	r := NewAsyncPagingReducer("FEED", nil, nil)
	prior := loaded(Record{"id": 1}, Record{"id": 2})
	prior.HasMore = false

	s := r.Reduce(prior, Action{Type: "FEED_PENDING", Payload: RecordOf(Record{"clear": true, "firstOffset": true})})

	assert.Empty(t, s.Data)
	assert.NotNil(t, s.Data)
	assert.Equal(t, 0, s.Offset)
	assert.True(t, s.Pending)
	assert.True(t, s.HasMore)
	assert.False(t, s.Refreshing)
	assert.Len(t, prior.Data, 2)
}

func TestPagingReducer_PendingRefresh(t *testing.T) {
	r := NewAsyncPagingReducer("FEED", nil, nil)
	s := r.Reduce(loaded(Record{"id": 1}), Action{Type: "FEED_PENDING", Payload: RecordOf(Record{"firstOffset": true})})

	assert.True(t, s.Refreshing)
	assert.Len(t, s.Data, 1, "refresh keeps items until success")
}

func TestPagingReducer_SuccessAppends(t *testing.T) {
	r := NewAsyncPagingReducer("FEED", nil, nil)
	s := r.Reduce(loaded(Record{"id": 1}), Action{
		Type:    "FEED_SUCCESS",
		Payload: RecordOf(Record{"firstOffset": false, "data": []any{Record{"id": 2}}}),
	})

	assert.Equal(t, []Record{{"id": 1}, {"id": 2}}, s.Data)
	assert.Equal(t, 2, s.Offset)
	assert.True(t, s.HasMore)
	assert.False(t, s.Pending)
}

func TestPagingReducer_SuccessFirstOffsetReplaces(t *testing.T) {
	r := NewAsyncPagingReducer("FEED", nil, nil)
	prior := loaded(Record{"id": 1}, Record{"id": 2}, Record{"id": 3})
	prior.Refreshing = true
	prior.Error = "old"

	s := r.Reduce(prior, Action{
		Type:    "FEED_SUCCESS",
		Payload: RecordOf(Record{"firstOffset": true, "data": []map[string]any{{"id": 9}}, "total": 10}),
	})

	assert.Equal(t, []Record{{"id": 9}}, s.Data)
	assert.Equal(t, 1, s.Offset)
	assert.False(t, s.Refreshing)
	assert.Nil(t, s.Error)
	total, _ := s.Field("total")
	assert.Equal(t, 10, total)
}

func TestPagingReducer_SuccessEmptyPage(t *testing.T) {
	r := NewAsyncPagingReducer("FEED", nil, nil)

	tests := []struct {
		name    string
		payload Payload
	}{
		{"empty data", RecordOf(Record{"data": []any{}})},
		{"missing data", RecordOf(Record{})},
		{"non-list data", RecordOf(Record{"data": "oops"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := r.Reduce(loaded(Record{"id": 1}), Action{Type: "FEED_SUCCESS", Payload: tt.payload})
			assert.False(t, s.HasMore)
			assert.Equal(t, 1, s.Offset)
			assert.Len(t, s.Data, 1)
		})
	}
}

func TestPagingReducer_SequencePayloadAppends(t *testing.T) {
	r := NewAsyncPagingReducer("FEED", nil, nil)
	s := r.Reduce(loaded(Record{"id": 1}), Action{Type: "FEED_SUCCESS", Payload: SequenceOf([]any{Record{"id": 2}})})

	assert.Equal(t, 2, s.Offset)
}

type post struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

func TestPagingReducer_SuccessTypedPage(t *testing.T) {
	r := NewAsyncPagingReducer("FEED", nil, nil)
	s := r.Reduce(loaded(Record{"id": 1}), Action{
		Type:    "FEED_SUCCESS",
		Payload: RecordOf(Record{"data": []post{{ID: 2, Title: "b"}, {ID: 3, Title: "c"}}}),
	})

	require.Len(t, s.Data, 3)
	assert.Equal(t, Record{"id": float64(2), "title": "b"}, s.Data[1])
	assert.Equal(t, 3, s.Offset)
	assert.True(t, s.HasMore)

	s = r.Reduce(s, RemoveAction("FEED", 3))
	assert.Len(t, s.Data, 2)
}

func TestPagingReducer_SuccessScalarPage(t *testing.T) {
	r := NewAsyncPagingReducer("FEED", nil, nil)
	s := r.Reduce(DefaultPagingState(), Action{
		Type:    "FEED_SUCCESS",
		Payload: RecordOf(Record{"firstOffset": true, "data": []any{1, 2, 3}}),
	})

	assert.Equal(t, []Record{{"id": 1}, {"id": 2}, {"id": 3}}, s.Data)
	assert.Equal(t, 3, s.Offset)
	assert.True(t, s.HasMore, "a page of scalars is not an empty page")
}

func TestPagingReducer_Fail(t *testing.T) {
	r := NewAsyncPagingReducer("FEED", nil, nil)
	prior := loaded(Record{"id": 1})
	prior.Pending, prior.Refreshing = true, true

	s := r.Reduce(prior, Action{Type: "FEED_FAIL", Payload: RecordOf(Record{"message": "down", "status": 503})})

	assert.False(t, s.Pending)
	assert.False(t, s.Refreshing)
	assert.Equal(t, Record{"message": "down", "status": 503}, s.Error)
	assert.Len(t, s.Data, 1)
}

func TestPagingReducer_AddItems(t *testing.T) {
	r := NewAsyncPagingReducer("FEED", nil, nil)

	s := r.Reduce(loaded(Record{"id": 1}), AddLastAction("FEED", Record{"id": 2}))
	s = r.Reduce(s, AddFirstAction("FEED", Record{"id": 0}))

	assert.Equal(t, []Record{{"id": 0}, {"id": 1}, {"id": 2}}, s.Data)
	assert.Equal(t, 3, s.Offset)

	empty := r.Reduce(&PagingState{}, AddLastAction("FEED", Record{"id": 5}))
	assert.Equal(t, []Record{{"id": 5}}, empty.Data, "nil data is initialized first")
}

func TestPagingReducer_Update(t *testing.T) {
	r := NewAsyncPagingReducer("FEED", nil, nil)
	prior := loaded(Record{"id": 1, "name": "a"}, Record{"id": 2, "name": "b"})

	s := r.Reduce(prior, UpdateAction("FEED", Record{"id": 2, "name": "B"}))
	assert.Equal(t, "B", s.Data[1]["name"])
	assert.Equal(t, "b", prior.Data[1]["name"])

	missing := r.Reduce(prior, UpdateAction("FEED", Record{"id": 7}))
	assert.Equal(t, prior.Data, missing.Data)
}

func TestPagingReducer_Replace(t *testing.T) {
	r := NewAsyncPagingReducer("FEED", nil, nil)
	prior := loaded(Record{"id": 1, "name": "a"})

	s := r.Reduce(prior, ReplaceAction("FEED", 1, Record{"id": 1, "name": "z"}))
	assert.Equal(t, "z", s.Data[0]["name"])

	guarded := r.Reduce(prior, Action{
		Type:    "FEED_REPLACE",
		Payload: RecordOf(Record{"id": 1, "data": []any{Record{"id": 1}}}),
	})
	assert.Equal(t, prior.Data, guarded.Data, "sequence data is ignored")

	missing := r.Reduce(prior, ReplaceAction("FEED", 5, Record{"id": 5}))
	assert.Equal(t, prior.Data, missing.Data)
}

func TestPagingReducer_Remove(t *testing.T) {
	r := NewAsyncPagingReducer("FEED", nil, nil)
	prior := loaded(Record{"id": 1})

	s := r.Reduce(prior, RemoveAction("FEED", 1))
	assert.Empty(t, s.Data)
	assert.Equal(t, 0, s.Offset)

	absent := r.Reduce(prior, RemoveAction("FEED", 999))
	assert.NotSame(t, prior, absent)
	assert.Equal(t, prior, absent)
}

func TestPagingReducer_RemoveMatchesDecodedIDs(t *testing.T) {
	r := NewAsyncPagingReducer("FEED", nil, nil)
	s := r.Reduce(loaded(Record{"id": float64(3)}), RemoveAction("FEED", 3))

	assert.Empty(t, s.Data)
}

func TestPagingReducer_Reset(t *testing.T) {
	initial := &PagingState{Data: []Record{{"id": "seed"}}, Offset: 1, HasMore: true}
	r := NewAsyncPagingReducer("FEED", nil, initial)

	s := r.Reduce(nil, Action{Type: "FEED_PENDING", Payload: RecordOf(Record{"clear": true})})
	s = r.Reduce(s, Action{Type: "FEED_SUCCESS", Payload: RecordOf(Record{"data": []any{Record{"id": 1}, Record{"id": 2}}})})
	s = r.Reduce(s, RemoveAction("FEED", 1))
	s = r.Reduce(s, ResetAction("FEED"))

	require.NotSame(t, initial, s)
	assert.Equal(t, initial, s)

	s.Data[0]["id"] = "mutated"
	assert.Equal(t, "seed", r.Initial().Data[0]["id"])
}

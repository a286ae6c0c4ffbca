package reflux

import (
	"context"
	"net/http"
)

// FetchFunc performs one HTTP request. *http.Client.Do satisfies it.
type FetchFunc func(*http.Request) (*http.Response, error)

// Config holds the hooks a Runner consults on every run. It is passed to
// NewRunner once; each Runner keeps its own copy, so tests can build isolated
// runners side by side.
type Config[S any] struct {
	// Fetch executes HTTP units of work. Defaults to http.DefaultClient.Do.
	Fetch FetchFunc

	// SuccessStatus is the status an HTTP response must carry to count as a
	// success. Defaults to 200.
	SuccessStatus int

	// BaseURL resolves the prefix prepended to every HTTPRequest.URL.
	BaseURL func(cfg *AsyncConfig[S], state S, root Action) string

	// Headers resolves the base headers of a request. Headers declared on
	// the HTTPRequest override them key by key.
	Headers func(cfg *AsyncConfig[S], state S, root Action, req HTTPRequest) http.Header

	// TransformRequest may rewrite a built request before it is sent.
	// Returning nil keeps the original.
	TransformRequest func(cfg *AsyncConfig[S], state S, req *http.Request) *http.Request

	// TransformSuccessResult maps each decoded result before it reaches the
	// SUCCESS payload.
	TransformSuccessResult func(result any, index int, all []any) any

	// TransformFailResult inspects each decoded result and flags a logical
	// failure by returning its fields and true.
	TransformFailResult func(result any) (Record, bool)

	// Middle runs after PENDING and before any unit of work. An error fails
	// the run.
	Middle func(ctx context.Context, cfg *AsyncConfig[S], state S, root Action) error

	// OnFail runs after a run dispatched FAIL.
	OnFail func(ctx context.Context, cfg *AsyncConfig[S], fail Action)
}

func (c Config[S]) successStatus() int {
	if c.SuccessStatus == 0 {
		return http.StatusOK
	}
	return c.SuccessStatus
}

package reflux

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance.
var validate = validator.New()

// HTTPRequest declares one HTTP unit of work attached to a triggering action.
type HTTPRequest struct {
	// URL is appended to the resolved base URL.
	URL string `validate:"required"`

	// Method defaults to GET.
	Method string `validate:"required,oneof=GET HEAD POST PUT PATCH DELETE UPDATE"`

	// Params are query-string encoded and appended to URL.
	Params map[string]any

	// Headers overlay the headers resolved by Config.Headers.
	Headers http.Header

	// Body is omitted for GET and HEAD. Strings, byte slices and readers pass
	// through verbatim; any other value is JSON-encoded.
	Body any
}

// encodeQuery encodes params in key order. Slices become repeated keys.
func encodeQuery(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := url.Values{}
	for _, k := range keys {
		switch v := params[k].(type) {
		case nil:
			values.Add(k, "")
		case []string:
			for _, s := range v {
				values.Add(k, s)
			}
		case []any:
			for _, s := range v {
				values.Add(k, fmt.Sprint(s))
			}
		default:
			values.Add(k, fmt.Sprint(v))
		}
	}
	return values.Encode()
}

// encodeBody applies the body policy and reports whether the body is JSON.
func encodeBody(method string, body any) (io.Reader, bool, error) {
	if method == http.MethodGet || method == http.MethodHead {
		return nil, false, nil
	}
	switch b := body.(type) {
	case nil:
		return http.NoBody, false, nil
	case string:
		return strings.NewReader(b), false, nil
	case []byte:
		return bytes.NewReader(b), false, nil
	case io.Reader:
		return b, false, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, false, fmt.Errorf("encode body: %w", err)
		}
		return bytes.NewReader(data), true, nil
	}
}

// buildRequest resolves one declarative request into an *http.Request.
func (r *Runner[S]) buildRequest(ctx context.Context, cfg *AsyncConfig[S], state S, root Action, baseURL string, spec HTTPRequest) (*http.Request, error) {
	if spec.Method == "" {
		spec.Method = http.MethodGet
	}
	spec.Method = strings.ToUpper(spec.Method)
	if err := validate.Struct(spec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	target := baseURL + spec.URL
	if q := encodeQuery(spec.Params); q != "" {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + q
	}

	body, isJSON, err := encodeBody(spec.Method, spec.Body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, spec.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	if r.config.Headers != nil {
		if h := r.config.Headers(cfg, state, root, spec); h != nil {
			req.Header = h.Clone()
		}
	}
	for k, vs := range spec.Headers {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if isJSON && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	if r.config.TransformRequest != nil {
		if t := r.config.TransformRequest(cfg, state, req); t != nil {
			req = t
		}
	}
	return req, nil
}

// httpTask turns a built request into a unit of work using the configured
// fetch function.
func (r *Runner[S]) httpTask(req *http.Request) Task {
	fetch := r.config.Fetch
	if fetch == nil {
		fetch = http.DefaultClient.Do
	}
	return func(ctx context.Context) (any, error) {
		resp, err := fetch(req.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		return resp, nil
	}
}

func isJSONResponse(resp *http.Response) bool {
	return strings.Contains(resp.Header.Get("Content-Type"), "application/json")
}

// decodeResponse reads and closes a response body, decoding JSON when the
// content type says so and returning text otherwise.
func decodeResponse(resp *http.Response) (any, error) {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if !isJSONResponse(resp) {
		return string(data), nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var v any
	if err := (JSONCodec{}).Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode json body: %w", err)
	}
	if m, ok := v.(map[string]any); ok {
		return Record(m), nil
	}
	return v, nil
}

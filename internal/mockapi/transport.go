package mockapi

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
)

// DefaultPrefix is the path prefix served in-process.
const DefaultPrefix = "/api/"

// Transport routes requests under Prefix to Handler without touching the
// network. Anything else goes to Fallback, or fails when Fallback is nil.
type Transport struct {
	Handler  http.Handler
	Prefix   string
	Fallback http.RoundTripper
}

// NewClient returns an http.Client whose requests under /api/ are served by h.
func NewClient(h http.Handler) *http.Client {
	return &http.Client{Transport: &Transport{Handler: h}}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	prefix := t.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasPrefix(req.URL.Path, prefix) {
		if t.Fallback != nil {
			return t.Fallback.RoundTrip(req)
		}
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, fmt.Errorf("mockapi: no route for %s %s", req.Method, req.URL.Path)
	}

	in := req.Clone(req.Context())
	if in.Body == nil {
		in.Body = http.NoBody
	}
	in.RequestURI = req.URL.RequestURI()

	rec := httptest.NewRecorder()
	t.Handler.ServeHTTP(rec, in)
	if req.Body != nil {
		req.Body.Close()
	}

	resp := rec.Result()
	resp.Request = req
	return resp, nil
}

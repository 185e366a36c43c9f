package mockapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/tada/internal/model"
)

const testURI = "mongodb://localhost:27017/tada"

func newAPI(t *testing.T) (http.Handler, *State, *prometheus.Registry) {
	t.Helper()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	st := NewState(model.NewIDClock(func() time.Time { return at }))
	reg := prometheus.NewRegistry()
	return NewHandler(st, Options{Registerer: reg}), st, reg
}

func do(t *testing.T, h http.Handler, method, path, body string, withURI bool) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if withURI {
		req.Header.Set(Header, testURI)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeTodo(t *testing.T, rec *httptest.ResponseRecorder) model.Todo {
	t.Helper()
	var td model.Todo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &td))
	return td
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var e errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	return e.Error
}

func TestMissingHeaderIs400Everywhere(t *testing.T) {
	h, _, _ := newAPI(t)
	cases := []struct{ method, path string }{
		{http.MethodGet, "/api/todos"},
		{http.MethodPost, "/api/todos"},
		{http.MethodGet, "/api/todos/1"},
		{http.MethodPut, "/api/todos/1"},
		{http.MethodDelete, "/api/todos/1"},
		{http.MethodGet, "/api/unknown"},
		{http.MethodPatch, "/elsewhere"},
	}
	for _, c := range cases {
		rec := do(t, h, c.method, c.path, "", false)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "%s %s", c.method, c.path)
		assert.Equal(t, "MongoDB URI is required", errorOf(t, rec))
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	}
}

func TestCreateThenList(t *testing.T) {
	h, _, _ := newAPI(t)

	rec := do(t, h, http.MethodGet, "/api/todos", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/todos", `{"text":"buy milk"}`, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeTodo(t, rec)
	assert.Equal(t, "buy milk", created.Text)
	assert.False(t, created.Completed)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "2024-05-01T12:00:00.000Z", created.CreatedAt)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = do(t, h, http.MethodGet, "/api/todos", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []model.Todo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, []model.Todo{created}, list)
}

func TestCreateIgnoresClientFields(t *testing.T) {
	h, _, _ := newAPI(t)
	rec := do(t, h, http.MethodPost, "/api/todos", `{"text":"x","completed":true,"id":"mine"}`, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	td := decodeTodo(t, rec)
	assert.False(t, td.Completed)
	assert.NotEqual(t, "mine", td.ID)
}

func TestCreateBadJSON(t *testing.T) {
	h, st, _ := newAPI(t)
	rec := do(t, h, http.MethodPost, "/api/todos", `{`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, st.Snapshot())
}

func TestSingleTodoRoutes(t *testing.T) {
	h, st, _ := newAPI(t)
	created := decodeTodo(t, do(t, h, http.MethodPost, "/api/todos", `{"text":"buy milk"}`, true))
	path := "/api/todos/" + created.ID

	rec := do(t, h, http.MethodGet, path, "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created, decodeTodo(t, rec))

	rec = do(t, h, http.MethodPut, path, `{"completed":true}`, true)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeTodo(t, rec)
	assert.True(t, updated.Completed)
	assert.Equal(t, "buy milk", updated.Text)
	assert.Equal(t, created.ID, updated.ID)

	rec = do(t, h, http.MethodDelete, path, "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, updated, decodeTodo(t, rec))
	assert.Empty(t, st.Snapshot())
}

func TestUnknownIDIs404(t *testing.T) {
	h, _, _ := newAPI(t)
	for _, m := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rec := do(t, h, m, "/api/todos/unknown-id", `{"text":"x"}`, true)
		assert.Equal(t, http.StatusNotFound, rec.Code, m)
		assert.Equal(t, "Todo not found", errorOf(t, rec))
	}
}

func TestUnmatchedIs404(t *testing.T) {
	h, _, _ := newAPI(t)
	for _, c := range []struct{ method, path string }{
		{http.MethodGet, "/api/other"},
		{http.MethodDelete, "/api/todos"},
		{http.MethodPatch, "/api/todos/1"},
		{http.MethodGet, "/"},
		{http.MethodGet, "/api//todos"},
		{http.MethodGet, "/api/./todos"},
		{http.MethodPost, "/api//todos"},
	} {
		rec := do(t, h, c.method, c.path, "", true)
		assert.Equal(t, http.StatusNotFound, rec.Code, "%s %s", c.method, c.path)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.Equal(t, "Not found", errorOf(t, rec))
	}
}

func TestPathsAreNotCleaned(t *testing.T) {
	h, _, _ := newAPI(t)
	// The id route takes anything after /api/todos/, so a dotted path is an
	// unknown id rather than a redirect.
	rec := do(t, h, http.MethodGet, "/api/todos/../todos", "", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Header().Get("Location"))
	assert.Equal(t, "Todo not found", errorOf(t, rec))
}

func TestResetEmptiesState(t *testing.T) {
	h, st, _ := newAPI(t)
	do(t, h, http.MethodPost, "/api/todos", `{"text":"a"}`, true)
	require.Len(t, st.Snapshot(), 1)
	st.Reset()
	assert.JSONEq(t, `[]`, do(t, h, http.MethodGet, "/api/todos", "", true).Body.String())
}

func TestRequestsAreCounted(t *testing.T) {
	h, _, reg := newAPI(t)
	do(t, h, http.MethodGet, "/api/todos", "", true)
	do(t, h, http.MethodGet, "/api/todos", "", true)
	do(t, h, http.MethodGet, "/api/todos", "", false)

	a := h.(*api)
	assert.Equal(t, 2.0, testutil.ToFloat64(a.requests.WithLabelValues("GET", "/api/todos", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.requests.WithLabelValues("GET", "/api/todos", "400")))

	n, err := testutil.GatherAndCount(reg, "tada_mockapi_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRegisterTwiceReusesCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	st := NewState(nil)
	h1 := NewHandler(st, Options{Registerer: reg}).(*api)
	h2 := NewHandler(st, Options{Registerer: reg}).(*api)
	assert.Same(t, h1.requests, h2.requests)
}

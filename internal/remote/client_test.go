package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/tada/internal/conn"
	"github.com/idilsaglam/tada/internal/kv"
	"github.com/idilsaglam/tada/internal/logging"
	"github.com/idilsaglam/tada/internal/mockapi"
	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/notify"
	"github.com/idilsaglam/tada/internal/store"
)

var _ store.Store = (*Client)(nil)

type fixture struct {
	client *Client
	gate   *conn.Gate
	state  *mockapi.State
	notes  *notify.Recorder
}

func newFixture(t *testing.T, configured bool) *fixture {
	t.Helper()
	t.Setenv(conn.EnvVar, "")
	dir, err := kv.Open(t.TempDir())
	require.NoError(t, err)
	gate := conn.NewGate(dir)
	if configured {
		require.NoError(t, gate.Set("mongodb://localhost/tada"))
	}
	st := mockapi.NewState(nil)
	notes := &notify.Recorder{}
	hc := mockapi.NewClient(mockapi.NewHandler(st, mockapi.Options{}))
	return &fixture{
		client: New(hc, "", gate, notes, logging.Discard()),
		gate:   gate,
		state:  st,
		notes:  notes,
	}
}

func TestCRUDAgainstMock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	c := f.client

	assert.Empty(t, c.List(ctx))

	a, ok := c.Add(ctx, "buy milk")
	require.True(t, ok)
	assert.Equal(t, "buy milk", a.Text)
	assert.False(t, a.Completed)

	b, ok := c.Add(ctx, "walk dog")
	require.True(t, ok)
	assert.Equal(t, []model.Todo{a, b}, c.List(ctx))

	up, ok := c.Update(ctx, a.ID, model.CompletedPatch(true))
	require.True(t, ok)
	assert.True(t, up.Completed)

	back, ok := store.Toggle(ctx, c, a.ID)
	require.True(t, ok)
	assert.Equal(t, a, back)

	assert.True(t, c.Remove(ctx, b.ID))
	assert.Equal(t, []model.Todo{a}, f.state.Snapshot())
	assert.Empty(t, f.notes.Notices())
}

func TestMissingIDsReportFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	_, ok := f.client.Update(ctx, "nope", model.TextPatch("x"))
	assert.False(t, ok)
	assert.False(t, f.client.Remove(ctx, "nope"))

	notes := f.notes.Notices()
	require.Len(t, notes, 2)
	assert.Equal(t, notify.Error, notes[0].Level)
	assert.Equal(t, msgSaveFailed, notes[0].Description)
	assert.Equal(t, msgDelFailed, notes[1].Description)
}

func TestUnsetGateIsNoOp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	_, ok := f.client.Add(ctx, "buy milk")
	assert.False(t, ok)
	_, ok = f.client.Update(ctx, "1", model.CompletedPatch(true))
	assert.False(t, ok)
	assert.False(t, f.client.Remove(ctx, "1"))
	assert.Empty(t, f.client.List(ctx))

	assert.Empty(t, f.state.Snapshot())
	notes := f.notes.Notices()
	require.Len(t, notes, 3, "list stays quiet when unset")
	for _, n := range notes {
		assert.Equal(t, MsgURINotSet, n.Description)
	}
}

func TestNoRequestWhenUnset(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	f := newFixture(t, false)
	c := New(srv.Client(), srv.URL, f.gate, f.notes, nil)
	_, ok := c.Add(context.Background(), "x")
	assert.False(t, ok)
	assert.Equal(t, int32(0), hits.Load())
	assert.Len(t, f.notes.Notices(), 1)
}

func TestServerErrorGivesSafeDefaults(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "mongodb://localhost/tada", r.Header.Get(mockapi.Header))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	}))
	defer srv.Close()

	f := newFixture(t, true)
	c := New(srv.Client(), srv.URL+"/", f.gate, f.notes, logging.Discard())

	assert.Empty(t, c.List(ctx))
	_, ok := c.Add(ctx, "x")
	assert.False(t, ok)
	_, ok = c.Update(ctx, "1", model.CompletedPatch(true))
	assert.False(t, ok)
	assert.False(t, c.Remove(ctx, "1"))

	notes := f.notes.Notices()
	require.Len(t, notes, 4)
	assert.Equal(t, msgLoadFailed, notes[0].Description)
	assert.Equal(t, msgAddFailed, notes[1].Description)
}

func TestMalformedBodyGivesEmptyList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	f := newFixture(t, true)
	c := New(srv.Client(), srv.URL, f.gate, f.notes, logging.Discard())
	got := c.List(context.Background())
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Len(t, f.notes.Notices(), 1)
}

func TestStatusError(t *testing.T) {
	assert.Equal(t, "api: 404 Todo not found", (&StatusError{Code: 404, Message: "Todo not found"}).Error())
	assert.Equal(t, "api: 500 Internal Server Error", (&StatusError{Code: 500}).Error())
}

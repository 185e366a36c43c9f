// Package remote talks to the todo REST API (mocked or real) and exposes it
// as a store.Store.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/idilsaglam/tada/internal/conn"
	"github.com/idilsaglam/tada/internal/mockapi"
	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/notify"
)

// DefaultBaseURL is used with the in-process transport; the host is never dialed.
const DefaultBaseURL = "http://mock.tada.local"

// MsgURINotSet is the notice for calls made before a connection string is set.
const MsgURINotSet = "MongoDB URI not set. Please add your URI first."

const (
	msgLoadFailed  = "Failed to load todos. Please check your connection."
	msgAddFailed   = "Failed to add todo. Please try again."
	msgSaveFailed  = "Failed to update todo. Please try again."
	msgDelFailed   = "Failed to delete todo. Please try again."
	collectionPath = "/api/todos"
)

var errNotSet = errors.New("connection string not set")

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %d %s", e.Code, e.Message)
	}
	return fmt.Sprintf("api: %d %s", e.Code, http.StatusText(e.Code))
}

// Client implements store.Store over HTTP.
type Client struct {
	HTTP    *http.Client
	BaseURL string
	Gate    *conn.Gate
	Notify  notify.Notifier
	Log     *log.Logger
}

// New returns a Client. An empty baseURL means DefaultBaseURL.
func New(hc *http.Client, baseURL string, gate *conn.Gate, n notify.Notifier, logger *log.Logger) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if n == nil {
		n = notify.Discard
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Client{HTTP: hc, BaseURL: strings.TrimRight(baseURL, "/"), Gate: gate, Notify: n, Log: logger}
}

func (c *Client) uri() (string, error) {
	uri, err := c.Gate.Get()
	if err != nil {
		return "", err
	}
	if uri == "" {
		return "", errNotSet
	}
	return uri, nil
}

// requireURI returns the connection string or tells the user it is missing.
func (c *Client) requireURI() (string, bool) {
	uri, err := c.uri()
	if err != nil {
		c.Log.Error("connection string unavailable", "err", err)
		c.Notify.Notify(notify.Failure(MsgURINotSet))
		return "", false
	}
	return uri, true
}

func (c *Client) do(ctx context.Context, uri, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set(mockapi.Header, uri)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &StatusError{Code: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) fail(msg string, err error, kv ...any) {
	c.Log.Error(msg, append(kv, "err", err)...)
}

func (c *Client) List(ctx context.Context) []model.Todo {
	uri, err := c.uri()
	if err != nil {
		c.Log.Info("MongoDB URI not set", "err", err)
		return []model.Todo{}
	}
	var todos []model.Todo
	if err := c.do(ctx, uri, http.MethodGet, collectionPath, nil, &todos); err != nil {
		c.fail("error fetching todos", err)
		c.Notify.Notify(notify.Failure(msgLoadFailed))
		return []model.Todo{}
	}
	if todos == nil {
		todos = []model.Todo{}
	}
	return todos
}

func (c *Client) Add(ctx context.Context, text string) (model.Todo, bool) {
	uri, ok := c.requireURI()
	if !ok {
		return model.Todo{}, false
	}
	var td model.Todo
	body := map[string]any{"text": text, "completed": false}
	if err := c.do(ctx, uri, http.MethodPost, collectionPath, body, &td); err != nil {
		c.fail("error adding todo", err)
		c.Notify.Notify(notify.Failure(msgAddFailed))
		return model.Todo{}, false
	}
	return td, true
}

func (c *Client) Update(ctx context.Context, id string, p model.Patch) (model.Todo, bool) {
	uri, ok := c.requireURI()
	if !ok {
		return model.Todo{}, false
	}
	var td model.Todo
	if err := c.do(ctx, uri, http.MethodPut, collectionPath+"/"+url.PathEscape(id), p, &td); err != nil {
		c.fail("error updating todo", err, "id", id)
		c.Notify.Notify(notify.Failure(msgSaveFailed))
		return model.Todo{}, false
	}
	return td, true
}

func (c *Client) Remove(ctx context.Context, id string) bool {
	uri, ok := c.requireURI()
	if !ok {
		return false
	}
	if err := c.do(ctx, uri, http.MethodDelete, collectionPath+"/"+url.PathEscape(id), nil, nil); err != nil {
		c.fail("error deleting todo", err, "id", id)
		c.Notify.Notify(notify.Failure(msgDelFailed))
		return false
	}
	return true
}

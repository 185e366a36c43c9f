package jsonstore

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/idilsaglam/tada/internal/kv"
	"github.com/idilsaglam/tada/internal/model"
)

// JSON-backed storage. The whole collection lives under one key and is
// rewritten on every change. No locking; fine for a single local user.

// Key is the kv key holding the collection.
const Key = "todos"

//go:embed todos.schema.json
var schemaJSON []byte

const schemaURL = "https://tada.local/schemas/todos.json"

func compileSchema() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	return c.Compile(schemaURL)
}

// Store is the durable todo store.
type Store struct {
	kv     *kv.Dir
	ids    *model.IDClock
	schema *jsonschema.Schema
	log    *log.Logger
}

// New returns a Store over dir. ids may be nil.
func New(dir *kv.Dir, ids *model.IDClock, logger *log.Logger) (*Store, error) {
	schema, err := compileSchema()
	if err != nil {
		return nil, fmt.Errorf("compile todo schema: %w", err)
	}
	if ids == nil {
		ids = model.NewIDClock(nil)
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Store{kv: dir, ids: ids, schema: schema, log: logger}, nil
}

// Load reads and decodes the collection. A missing key is an empty list.
func (s *Store) Load() ([]model.Todo, error) {
	b, ok, err := s.kv.Get(Key)
	if err != nil {
		return nil, err
	}
	if !ok || len(bytes.TrimSpace(b)) == 0 {
		return []model.Todo{}, nil
	}
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	if err := s.schema.Validate(raw); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	var todos []model.Todo
	if err := json.Unmarshal(b, &todos); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	if todos == nil {
		todos = []model.Todo{}
	}
	return todos, nil
}

// Save overwrites the collection.
func (s *Store) Save(todos []model.Todo) error {
	if todos == nil {
		todos = []model.Todo{}
	}
	b, err := json.MarshalIndent(todos, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	return s.kv.Set(Key, b)
}

// load is Load with the error swallowed: an unreadable blob lists as empty.
func (s *Store) load() []model.Todo {
	todos, err := s.Load()
	if err != nil {
		s.log.Error("failed to parse stored todos", "err", err)
		return []model.Todo{}
	}
	return todos
}

func (s *Store) List(ctx context.Context) []model.Todo {
	return s.load()
}

func (s *Store) Add(ctx context.Context, text string) (model.Todo, bool) {
	todos := s.load()
	td := s.ids.New(text)
	if err := s.Save(append(todos, td)); err != nil {
		s.log.Error("failed to save todo", "err", err)
		return model.Todo{}, false
	}
	s.log.Debug("todo added", "id", td.ID)
	return td, true
}

func (s *Store) Update(ctx context.Context, id string, p model.Patch) (model.Todo, bool) {
	todos := s.load()
	i := model.Index(todos, id)
	if i < 0 {
		return model.Todo{}, false
	}
	if p.IsEmpty() {
		return todos[i], true
	}
	todos[i] = p.Apply(todos[i])
	if err := s.Save(todos); err != nil {
		s.log.Error("failed to save todo", "id", id, "err", err)
		return model.Todo{}, false
	}
	return todos[i], true
}

func (s *Store) Remove(ctx context.Context, id string) bool {
	todos := s.load()
	i := model.Index(todos, id)
	if i < 0 {
		return false
	}
	todos = append(todos[:i], todos[i+1:]...)
	if err := s.Save(todos); err != nil {
		s.log.Error("failed to save todos", "id", id, "err", err)
		return false
	}
	return true
}

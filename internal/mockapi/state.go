// Package mockapi stands in for a todo backend until a real one exists. It
// serves a small REST surface from an in-memory list.
package mockapi

import (
	"sync"

	"github.com/idilsaglam/tada/internal/model"
)

// State is the in-memory collection behind the mock API. It starts empty
// and is emptied again by Reset.
type State struct {
	mu    sync.Mutex
	todos []model.Todo
	ids   *model.IDClock
}

// NewState returns an empty State. ids may be nil.
func NewState(ids *model.IDClock) *State {
	if ids == nil {
		ids = model.NewIDClock(nil)
	}
	return &State{ids: ids, todos: []model.Todo{}}
}

// Reset drops every todo.
func (s *State) Reset() {
	s.mu.Lock()
	s.todos = []model.Todo{}
	s.mu.Unlock()
}

// Snapshot returns a copy of the collection.
func (s *State) Snapshot() []model.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Todo{}, s.todos...)
}

func (s *State) create(text string) model.Todo {
	td := s.ids.New(text)
	s.mu.Lock()
	s.todos = append(s.todos, td)
	s.mu.Unlock()
	return td
}

func (s *State) get(id string) (model.Todo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := model.Index(s.todos, id)
	if i < 0 {
		return model.Todo{}, false
	}
	return s.todos[i], true
}

func (s *State) update(id string, p model.Patch) (model.Todo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := model.Index(s.todos, id)
	if i < 0 {
		return model.Todo{}, false
	}
	s.todos[i] = p.Apply(s.todos[i])
	return s.todos[i], true
}

func (s *State) remove(id string) (model.Todo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := model.Index(s.todos, id)
	if i < 0 {
		return model.Todo{}, false
	}
	td := s.todos[i]
	s.todos = append(s.todos[:i], s.todos[i+1:]...)
	return td, true
}

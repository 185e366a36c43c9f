// Package store defines the capability every todo backend offers.
package store

import (
	"context"

	"github.com/idilsaglam/tada/internal/model"
)

// Store is the todo CRUD surface shared by the durable store and the remote
// client. Failures never escape: they are logged (and shown to the user where
// the variant does that) and the call returns its safe default, an empty
// list, ok=false or false.
type Store interface {
	// List returns the whole collection in insertion order.
	List(ctx context.Context) []model.Todo
	// Add appends a pending todo with a fresh id.
	Add(ctx context.Context, text string) (model.Todo, bool)
	// Update merges p into the todo with id; ok is false when it is missing.
	Update(ctx context.Context, id string, p model.Patch) (model.Todo, bool)
	// Remove deletes the todo with id and reports whether one was removed.
	Remove(ctx context.Context, id string) bool
}

// Toggle flips the completed flag of the todo with id. It reads the current
// value from the collection first, so it costs a List plus an Update.
func Toggle(ctx context.Context, s Store, id string) (model.Todo, bool) {
	todos := s.List(ctx)
	i := model.Index(todos, id)
	if i < 0 {
		return model.Todo{}, false
	}
	return s.Update(ctx, id, model.CompletedPatch(!todos[i].Completed))
}

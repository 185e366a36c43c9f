package model

import (
	"fmt"
	"strings"
)

// Filter selects which todos a list view shows.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

// Filters lists every filter in tab order.
var Filters = []Filter{FilterAll, FilterActive, FilterCompleted}

// ParseFilter accepts a filter name; the empty string means all.
func ParseFilter(s string) (Filter, error) {
	switch Filter(strings.ToLower(strings.TrimSpace(s))) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterActive:
		return FilterActive, nil
	case FilterCompleted:
		return FilterCompleted, nil
	}
	return "", fmt.Errorf("unknown filter %q (want all, active or completed)", s)
}

// Match reports whether t belongs in the filtered view.
func (f Filter) Match(t Todo) bool {
	switch f {
	case FilterActive:
		return !t.Completed
	case FilterCompleted:
		return t.Completed
	}
	return true
}

// Apply returns the todos matching f, in their original order.
func (f Filter) Apply(todos []Todo) []Todo {
	out := make([]Todo, 0, len(todos))
	for _, t := range todos {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// Next cycles to the following filter tab.
func (f Filter) Next() Filter {
	for i, g := range Filters {
		if g == f {
			return Filters[(i+1)%len(Filters)]
		}
	}
	return FilterAll
}

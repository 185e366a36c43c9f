package model

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"
)

// TimeLayout is the ISO-8601 layout used for CreatedAt.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// ErrEmptyText is returned when a todo would be created or edited with blank text.
var ErrEmptyText = errors.New("todo text cannot be empty")

// Todo is the domain model for a todo entry.
type Todo struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	CreatedAt string `json:"createdAt"`
}

// Patch carries the fields of a partial update. Nil fields are left alone.
type Patch struct {
	Text      *string `json:"text,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// TextPatch and CompletedPatch build single-field patches.
func TextPatch(text string) Patch    { return Patch{Text: &text} }
func CompletedPatch(done bool) Patch { return Patch{Completed: &done} }

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool { return p.Text == nil && p.Completed == nil }

// Apply returns t with the patch merged in. ID and CreatedAt never change.
func (p Patch) Apply(t Todo) Todo {
	if p.Text != nil {
		t.Text = *p.Text
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	return t
}

// ValidateText trims text and rejects it when nothing is left.
func ValidateText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	return text, nil
}

// IDClock hands out ids from a millisecond timestamp, bumped by one when the
// clock has not moved since the last id.
type IDClock struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewIDClock returns a clock reading now; nil means time.Now.
func NewIDClock(now func() time.Time) *IDClock {
	if now == nil {
		now = time.Now
	}
	return &IDClock{now: now}
}

// Next returns a fresh id and the creation timestamp that goes with it.
func (c *IDClock) Next() (id string, createdAt string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().UTC()
	ms := t.UnixMilli()
	if ms <= c.last {
		ms = c.last + 1
	}
	c.last = ms
	return strconv.FormatInt(ms, 10), t.Format(TimeLayout)
}

// New builds a pending todo with a fresh id.
func (c *IDClock) New(text string) Todo {
	id, at := c.Next()
	return Todo{ID: id, Text: text, Completed: false, CreatedAt: at}
}

// Index returns the position of id in todos, or -1.
func Index(todos []Todo, id string) int {
	for i, t := range todos {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Stats counts done and pending todos for headers and progress bars.
func Stats(todos []Todo) (done, pending int) {
	for _, t := range todos {
		if t.Completed {
			done++
		} else {
			pending++
		}
	}
	return
}

// Remaining is the number of todos still active.
func Remaining(todos []Todo) int {
	_, p := Stats(todos)
	return p
}

// Package notify carries short user-facing notices (toasts) from the data
// layer to whichever surface is showing them.
package notify

import "sync"

// Level tells a surface how to style a notice.
type Level int

const (
	Info Level = iota
	Error
)

// Notice is one transient message.
type Notice struct {
	Level       Level
	Title       string
	Description string
}

// Notifier shows notices to the user.
type Notifier interface {
	Notify(Notice)
}

// Func adapts a plain function to Notifier.
type Func func(Notice)

func (f Func) Notify(n Notice) { f(n) }

// Discard drops every notice.
var Discard Notifier = Func(func(Notice) {})

// Failure and Success build the two notice shapes the app uses.
func Failure(desc string) Notice { return Notice{Level: Error, Title: "Error", Description: desc} }
func Success(desc string) Notice { return Notice{Level: Info, Title: "Success", Description: desc} }

// Recorder keeps every notice it receives. Safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

// Notices returns a copy of what was recorded.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Drain returns the recorded notices and forgets them.
func (r *Recorder) Drain() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.notices
	r.notices = nil
	return out
}

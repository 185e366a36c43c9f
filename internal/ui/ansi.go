package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/idilsaglam/tada/internal/notify"
)

var (
	reset = "\033[0m"
	bold  = "\033[1m"
	dim   = "\033[2m"

	fgGray   = "\033[90m"
	fgGreen  = "\033[32m"
	fgYellow = "\033[33m"
	fgBlue   = "\033[34m"
	fgRed    = "\033[31m"

	symCheck = "✔"
	symCross = "✖"
)

var (
	forceColor   bool
	disableColor bool

	// Stdout and Stderr are swapped out by tests.
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

func SetColorForcing(force, disable bool) {
	forceColor = force
	disableColor = disable
}

func isTTY() bool {
	f, ok := Stdout.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

func C(color, s string) string {
	if disableColor || color == "" {
		return s
	}
	if forceColor || isTTY() {
		return color + s + reset
	}
	return s
}

func Dim(s string) string { return C(dim, s) }

func OK(msg string)   { fmt.Fprintln(Stdout, C(fgGreen, symCheck+" "+msg)) }
func Fail(msg string) { fmt.Fprintln(Stderr, C(fgRed, symCross+" "+msg)) }

// Notifier prints store notices the way OK and Fail do.
type Notifier struct{}

func (Notifier) Notify(n notify.Notice) {
	msg := n.Description
	if msg == "" {
		msg = n.Title
	}
	if n.Level == notify.Error {
		Fail(msg)
		return
	}
	OK(msg)
}

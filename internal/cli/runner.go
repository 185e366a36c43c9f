package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/idilsaglam/tada/internal/app"
	"github.com/idilsaglam/tada/internal/conn"
	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/notify"
	"github.com/idilsaglam/tada/internal/remote"
	"github.com/idilsaglam/tada/internal/store"
	"github.com/idilsaglam/tada/internal/ui"
)

// Options tune output behavior from root flags.
type Options struct {
	Group bool // list grouped by pending/done
}

// TUIFunc starts the interactive list. Injected so the runner does not
// depend on the terminal.
type TUIFunc func(ctx context.Context, a *app.App) error

// Runner dispatches subcommands against one App.
type Runner struct {
	App   *app.App
	Opt   Options
	TUI   TUIFunc
	Serve func(ctx context.Context) error
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func (r *Runner) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		PrintHelp()
		return 2
	}
	cmd, a := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		PrintHelp()
		return 0

	case "ls":
		if len(a) > 1 {
			ui.Fail("usage: todo ls [all|active|completed]")
			return 2
		}
		f := model.FilterAll
		if len(a) == 1 {
			var err error
			if f, err = model.ParseFilter(a[0]); err != nil {
				ui.Fail("ls: " + err.Error())
				return 2
			}
		}
		return r.doList(ctx, f)

	case "add":
		if len(a) == 0 {
			ui.Fail("usage: todo add <text...>")
			return 2
		}
		return r.doAdd(ctx, strings.Join(a, " "))

	case "done":
		if len(a) != 1 {
			ui.Fail("usage: todo done <id|index>")
			return 2
		}
		return r.doToggle(ctx, a[0])

	case "edit":
		if len(a) < 2 {
			ui.Fail("usage: todo edit <id|index> <text...>")
			return 2
		}
		return r.doEdit(ctx, a[0], strings.Join(a[1:], " "))

	case "rm":
		if len(a) != 1 {
			ui.Fail("usage: todo rm <id|index>")
			return 2
		}
		return r.doRemove(ctx, a[0])

	case "tui":
		if r.TUI == nil {
			ui.Fail("tui: not available")
			return 1
		}
		if err := r.TUI(ctx, r.App); err != nil {
			ui.Fail("tui: " + err.Error())
			return 1
		}
		return 0

	case "conn":
		if len(a) == 0 {
			ui.Fail("usage: todo conn <set <uri>|clear|status>")
			return 2
		}
		switch a[0] {
		case "set":
			if len(a) != 2 {
				ui.Fail("usage: todo conn set <uri>")
				return 2
			}
			return r.doConnSet(a[1])
		case "clear":
			return r.doConnClear()
		case "status":
			return r.doConnStatus()
		}
		ui.Fail("usage: todo conn <set <uri>|clear|status>")
		return 2

	case "serve":
		serve := r.Serve
		if serve == nil {
			serve = r.App.Serve
		}
		if err := serve(ctx); err != nil {
			ui.Fail("serve: " + err.Error())
			return 1
		}
		return 0
	}

	ui.Fail("unknown subcommand: " + cmd)
	fmt.Fprintln(ui.Stderr)
	PrintHelp()
	return 2
}

func PrintHelp() {
	fmt.Fprintf(ui.Stdout, `todo - a tiny todo list

Usage:
  todo [flags] <subcommand> [args]

Subcommands:
  add <text...>               Add a new todo (text can be multiple words)
  ls [all|active|completed]   List todos
  done <id|index>             Toggle completed
  edit <id|index> <text...>   Replace the text of a todo
  rm <id|index>               Delete a todo
  tui                         Interactive list
  conn set <uri>|clear|status MongoDB connection string (remote backend)
  serve                       Run the mock API over HTTP

Flags:
  -backend local|remote   -data-dir DIR   -api URL   -listen ADDR
  -log-level LEVEL        -log-format FMT -theme NAME -group

Examples:
  todo add "Buy milk"
  todo ls active
  todo done 2
  todo -backend remote conn set mongodb://localhost:27017
`)
}

// -------------- subcommand impls ----------------

// resolve turns an id or a 1-based index into a todo. With the remote
// backend unset it fails with the store's own notice, since the list is
// always empty then.
func (r *Runner) resolve(ctx context.Context, ref string) (model.Todo, int) {
	if r.App.Remote() && r.App.Gate.State() == conn.Unset {
		r.App.Notifier().Notify(notify.Failure(remote.MsgURINotSet))
		return model.Todo{}, 1
	}
	todos := r.App.Store.List(ctx)
	if i := model.Index(todos, ref); i >= 0 {
		return todos[i], 0
	}
	n, err := strconv.Atoi(ref)
	if err != nil || n < 1 || n > len(todos) {
		ui.Fail(fmt.Sprintf("no todo %q (have %d)", ref, len(todos)))
		fmt.Fprintln(ui.Stderr, ui.Dim("Hint: run `todo ls` to see ids and indexes"))
		return model.Todo{}, 2
	}
	return todos[n-1], 0
}

func (r *Runner) doList(ctx context.Context, f model.Filter) int {
	todos := r.App.Store.List(ctx)
	th := ui.Current()

	d, p := model.Stats(todos)
	header := fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		ui.C(th.Title, "Todos"),
		ui.C(th.Success, th.SymDone), d,
		ui.C(th.Pending, th.SymPending), p,
		ui.C(th.Accent, "Total"), len(todos),
	)

	var lines []string
	lines = append(lines, header)
	lines = append(lines, ui.C(th.Muted, ui.ProgressBar(d, d+p, 28)))
	lines = append(lines, "")

	if r.Opt.Group && f == model.FilterAll {
		lines = append(lines, groupLines(todos)...)
	} else {
		lines = append(lines, flatLines(todos, f)...)
	}
	lines = append(lines, "")
	lines = append(lines, ui.C(th.Muted, itemsLeft(model.Remaining(todos))))
	ui.Panel(lines)
	return 0
}

func (r *Runner) doAdd(ctx context.Context, text string) int {
	text, err := model.ValidateText(text)
	if err != nil {
		ui.Fail("add: " + err.Error())
		return 2
	}
	td, ok := r.App.Store.Add(ctx, text)
	if !ok {
		return 1
	}
	ui.OK("added " + td.ID)
	return 0
}

func (r *Runner) doToggle(ctx context.Context, ref string) int {
	td, code := r.resolve(ctx, ref)
	if code != 0 {
		return code
	}
	td, ok := store.Toggle(ctx, r.App.Store, td.ID)
	if !ok {
		return 1
	}
	if td.Completed {
		ui.OK("completed")
	} else {
		ui.OK("reopened")
	}
	return 0
}

func (r *Runner) doEdit(ctx context.Context, ref, text string) int {
	text, err := model.ValidateText(text)
	if err != nil {
		ui.Fail("edit: " + err.Error())
		return 2
	}
	td, code := r.resolve(ctx, ref)
	if code != 0 {
		return code
	}
	if _, ok := r.App.Store.Update(ctx, td.ID, model.TextPatch(text)); !ok {
		return 1
	}
	ui.OK("updated")
	return 0
}

func (r *Runner) doRemove(ctx context.Context, ref string) int {
	td, code := r.resolve(ctx, ref)
	if code != 0 {
		return code
	}
	if !r.App.Store.Remove(ctx, td.ID) {
		return 1
	}
	ui.OK("removed")
	return 0
}

func (r *Runner) doConnSet(uri string) int {
	if err := r.App.Gate.Set(uri); err != nil {
		if errors.Is(err, conn.ErrEmptyURI) || errors.Is(err, conn.ErrInvalidScheme) {
			ui.Fail("Invalid URI: Please enter a valid MongoDB URI")
			return 2
		}
		ui.Fail(err.Error())
		return 1
	}
	ui.OK("MongoDB URI saved successfully")
	return 0
}

func (r *Runner) doConnClear() int {
	if err := r.App.Gate.Clear(); err != nil {
		ui.Fail(err.Error())
		return 1
	}
	ui.OK("MongoDB URI cleared")
	if r.App.Gate.EnvOverride() {
		fmt.Fprintln(ui.Stdout, ui.Dim("note: "+conn.EnvVar+" is still set and applies on the next run"))
	}
	return 0
}

func (r *Runner) doConnStatus() int {
	uri, err := r.App.Gate.Get()
	if err != nil {
		ui.Fail(err.Error())
		return 1
	}
	if uri == "" {
		fmt.Fprintln(ui.Stdout, "connection: unset")
		return 0
	}
	fmt.Fprintf(ui.Stdout, "connection: configured (%s, from %s)\n", conn.Mask(uri), r.App.Gate.Source())
	return 0
}

// -------------- rendering helpers --------------

func itemsLeft(n int) string {
	if n == 1 {
		return "1 item left"
	}
	return fmt.Sprintf("%d items left", n)
}

// flatLines renders the filtered view; indexes refer to the full list so
// they stay valid for done/rm.
func flatLines(todos []model.Todo, f model.Filter) []string {
	th := ui.Current()
	var out []string
	for i, td := range todos {
		if !f.Match(td) {
			continue
		}
		idx := fmt.Sprintf("%2d.", i+1)
		box, color := th.BoxUnchecked, th.Muted
		if td.Completed {
			box, color = th.BoxChecked, th.Success
		}
		text := td.Text
		if r := []rune(text); len(r) > 80 {
			text = string(r[:77]) + "..."
		}
		out = append(out, fmt.Sprintf("%s %s %s %s",
			ui.Dim(idx), ui.C(color, box), text, ui.C(th.Muted, td.ID)))
	}
	if len(out) == 0 {
		if len(todos) == 0 {
			return []string{ui.C(th.Muted, "No todos yet")}
		}
		return []string{ui.C(th.Muted, fmt.Sprintf("No %s todos found", f))}
	}
	return out
}

func groupLines(todos []model.Todo) []string {
	th := ui.Current()
	section := func(title string, f model.Filter) []string {
		lines := []string{ui.C(th.Accent, title)}
		if len(f.Apply(todos)) == 0 {
			return append(lines, ui.C(th.Muted, "(none)"))
		}
		return append(lines, flatLines(todos, f)...)
	}
	lines := section("Pending", model.FilterActive)
	lines = append(lines, "")
	return append(lines, section("Done", model.FilterCompleted)...)
}

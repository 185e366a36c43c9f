package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/idilsaglam/tada/internal/app"
	"github.com/idilsaglam/tada/internal/cli"
	"github.com/idilsaglam/tada/internal/config"
	"github.com/idilsaglam/tada/internal/logging"
	"github.com/idilsaglam/tada/internal/tui"
	"github.com/idilsaglam/tada/internal/ui"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Root flags apply to every subcommand.
	cfg, args, err := config.Load(flag.CommandLine, os.Args[1:])
	if err != nil {
		ui.Fail(err.Error())
		return 1
	}
	if len(args) == 0 {
		cli.PrintHelp()
		return 2
	}
	if err := ui.SetTheme(cfg.Theme); err != nil {
		ui.Fail(err.Error())
		return 1
	}

	opts := logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat}
	logger := logging.New(os.Stderr, opts)
	if args[0] == "tui" {
		// The TUI owns the terminal; log to a file instead.
		fl, closer, err := logging.NewFile(cfg.LogPath(), opts)
		if err != nil {
			ui.Fail(err.Error())
			return 1
		}
		defer closer.Close()
		logger = fl
	}
	log.SetDefault(logger)

	a, err := app.New(cfg, logger)
	if err != nil {
		ui.Fail(err.Error())
		return 1
	}
	a.SetNotifier(ui.Notifier{})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := &cli.Runner{
		App: a,
		Opt: cli.Options{Group: cfg.Group},
		TUI: tui.Run,
	}
	code := r.Run(ctx, args)
	if code != 0 {
		fmt.Fprintln(os.Stderr)
	}
	return code
}

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/bookbuilder/cmd/bookbuilder/commands"
	foundation "git.home.luguber.info/inful/bookbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/bookbuilder/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cli := &commands.CLI{}
	global := &commands.Global{Ctx: ctx, Stderr: os.Stderr}
	parser := kong.Parse(cli,
		kong.Name("bookbuilder"),
		kong.Description("Build a static documentation book from a tree of Markdown files."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(global, cli),
	)

	err := parser.Run()
	stop()
	if err != nil {
		os.Exit(foundation.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err))
	}
}

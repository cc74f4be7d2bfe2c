package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/craigdanielk/web-builder/cmd/webbuilder/commands"
	"github.com/craigdanielk/web-builder/internal/foundation/errors"
	"github.com/craigdanielk/web-builder/internal/version"
)

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("webbuilder"),
		kong.Description("Generate a landing page from a brief or a reference site."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(&commands.Global{Out: os.Stdout}),
	)
	if err := ctx.Run(&cli); err != nil {
		errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}

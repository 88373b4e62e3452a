package main

import (
	"os"

	"github.com/alecthomas/kong"

	"github.com/zellyn/sectorcpc/cmd"
)

func main() {
	var cli cmd.CLI
	ctx := kong.Parse(&cli,
		kong.Name("sectorcpc"),
		kong.Description("Read, write, create, and modify Amstrad CPC .dsk disk images."),
		kong.UsageOnError(),
		kong.Vars{"version": "sectorcpc 1.0 2026"},
	)

	err := ctx.Run(&cli)
	if err != nil {
		cmd.NewLogger(cli.Debug).Error(err)
		os.Exit(1)
	}
}

package commands

import (
	"context"
	"fmt"

	"github.com/common-nighthawk/go-figure"
)

type VersionCmd struct {
	Banner bool `help:"Print the banner" default:"true" negatable:""`
}

func (c *VersionCmd) Run(ctx context.Context, globals *Globals) error {
	w := globals.stdout()
	if c.Banner {
		fmt.Fprintln(w, figure.NewFigure("twin-admin", "", true).String())
	}
	fmt.Fprintf(w, "twin-admin-cli %s\n", globals.Version)
	return nil
}

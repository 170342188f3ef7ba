package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/mytwin/twin-admin/internal/environment"
)

// EnvCmd selects the backend environment.
type EnvCmd struct {
	Get  EnvGetCmd  `cmd:"" default:"1" help:"Show the selected environment"`
	Set  EnvSetCmd  `cmd:"" help:"Select an environment, ending the current session"`
	List EnvListCmd `cmd:"" help:"List environments"`
}

type EnvGetCmd struct{}

func (c *EnvGetCmd) Run(ctx context.Context, globals *Globals) error {
	console, err := globals.Console()
	if err != nil {
		return err
	}
	fmt.Fprintln(globals.stdout(), console.Environment().Name)
	return nil
}

type EnvSetCmd struct {
	Name string `arg:"" help:"Environment name (dev or prod)"`
}

func (c *EnvSetCmd) Run(ctx context.Context, globals *Globals) error {
	env, err := environment.Parse(c.Name)
	if err != nil {
		return err
	}

	console, err := globals.Console()
	if err != nil {
		return err
	}

	if console.Environment().Name == env {
		fmt.Fprintf(globals.stdout(), "Already using %s.\n", env)
		return nil
	}

	hadSession := console.Store().IsAuthenticated()

	if err := console.SwitchEnvironment(env); err != nil {
		return fmt.Errorf("failed to switch environment: %w", err)
	}

	w := globals.stdout()
	fmt.Fprintf(w, "Switched to %s (%s).\n", console.Environment().Label, console.Environment().GraphQLURL)
	if hadSession {
		fmt.Fprintln(w, "The previous session was cleared; log in again.")
	}
	return nil
}

type EnvListCmd struct {
	OutputFlag `embed:""`
}

func (c *EnvListCmd) Run(ctx context.Context, globals *Globals) error {
	console, err := globals.Console()
	if err != nil {
		return err
	}

	current := console.Environment().Name
	envs := console.Environments()

	return c.render(globals.stdout(), envs, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "NAME\tLABEL\tENDPOINT\tREFRESH TOKENS\tSELECTED")
		for _, env := range envs {
			selected := ""
			if env.Name == current {
				selected = "*"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", env.Name, env.Label, env.GraphQLURL, env.UsesRefreshToken, selected)
		}
	})
}

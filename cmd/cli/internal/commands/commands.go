package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mytwin/twin-admin/internal/auth"
	"github.com/mytwin/twin-admin/internal/client"
)

type Globals struct {
	Debug      bool
	Version    string
	StateDir   string
	ConfigFile string
	Timeout    time.Duration

	// Out receives command output; nil means stdout.
	Out io.Writer

	console *client.Console
}

// Console returns the process console, creating it on first use.
func (g *Globals) Console() (*client.Console, error) {
	if g.console != nil {
		return g.console, nil
	}

	cfg := client.DefaultConfig()
	cfg.StateDir = g.StateDir
	cfg.Debug = g.Debug
	cfg.UserAgent = "twin-admin-cli/" + g.Version
	if g.Timeout > 0 {
		cfg.Timeout = g.Timeout
	}

	if g.ConfigFile != "" {
		if err := client.LoadConfigFile(g.ConfigFile, &cfg); err != nil {
			return nil, err
		}
	}

	c, err := client.New(cfg, auth.NavigatorFunc(loginRedirect))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize console: %w", err)
	}
	g.console = c
	return c, nil
}

// Authorized returns the console after the guard admitted the session.
func (g *Globals) Authorized(ctx context.Context) (*client.Console, error) {
	c, err := g.Console()
	if err != nil {
		return nil, err
	}
	if err := c.Authorize(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Close releases the console, if one was created.
func (g *Globals) Close() {
	if g.console != nil {
		g.console.Close()
	}
}

func (g *Globals) stdout() io.Writer {
	if g.Out != nil {
		return g.Out
	}
	return os.Stdout
}

// loginRedirect is the CLI's way of sending the user back to login.
func loginRedirect(reason string) {
	fmt.Fprintf(os.Stderr, "Session ended: %s.\nRun 'twin-admin-cli login' to log in again.\n", reason)
}

// Output formats for list and get commands.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// OutputFlag selects how results are printed.
type OutputFlag struct {
	Output string `short:"o" help:"Output format: table, json or yaml" enum:"table,json,yaml" default:"table"`
}

// render prints v in the selected format, calling table for the tabular one.
func (o OutputFlag) render(w io.Writer, v any, table func(tw *tabwriter.Writer)) error {
	switch o.Output {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	}
}

var errAborted = errors.New("aborted")

// confirm asks before destructive commands unless yes is set.
func confirm(yes bool, message string) error {
	if yes {
		return nil
	}
	if !isInteractive() {
		return errors.New("refusing to continue without confirmation, pass --yes")
	}

	ok, err := promptConfirm(message)
	if err != nil {
		return err
	}
	if !ok {
		return errAborted
	}
	return nil
}

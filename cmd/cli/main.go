package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"

	"github.com/mytwin/twin-admin/cmd/cli/internal/commands"
	"github.com/mytwin/twin-admin/internal/logger"
	"github.com/mytwin/twin-admin/internal/telemetry"
)

var (
	version = "dev"
	cli     struct {
		Login    commands.LoginCmd    `cmd:"" help:"Log in to the current environment"`
		Logout   commands.LogoutCmd   `cmd:"" help:"End the current session"`
		Status   commands.StatusCmd   `cmd:"" help:"Show the current session"`
		Refresh  commands.RefreshCmd  `cmd:"" help:"Refresh the session tokens"`
		Env      commands.EnvCmd      `cmd:"" help:"Show or switch the target environment"`
		Users    commands.UsersCmd    `cmd:"" help:"Manage users"`
		Identity commands.IdentityCmd `cmd:"" help:"Manage user identities"`
		AppViews commands.AppViewsCmd `cmd:"" name:"appviews" help:"Manage AppViews"`
		About    commands.VersionCmd  `cmd:"" help:"Show version information"`

		StateDir   string        `help:"Directory holding the session state" env:"TWIN_ADMIN_STATE_DIR" type:"path"`
		ConfigFile string        `name:"config" help:"Environment configuration file" env:"TWIN_ADMIN_CONFIG" type:"path"`
		Timeout    time.Duration `help:"Request timeout" env:"TWIN_ADMIN_TIMEOUT" default:"30s"`
		Debug      bool          `help:"Enable debug mode."`
		Version    kong.VersionFlag
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Name("twin-admin-cli"),
		kong.Description("Administration console for the digital twin platform."),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	log.Logger = logger.Setup(cli.Debug)

	shutdown := func(context.Context) error { return nil }
	if telemetry.Enabled() {
		fn, err := telemetry.Init(ctx, "twin-admin-cli", version)
		if err != nil {
			log.Warn().Err(err).Msg("telemetry disabled")
		} else {
			shutdown = fn
		}
	}

	globals := &commands.Globals{
		Debug:      cli.Debug,
		Version:    version,
		StateDir:   cli.StateDir,
		ConfigFile: cli.ConfigFile,
		Timeout:    cli.Timeout,
	}
	err := cmd.Run(globals)

	globals.Close()
	if serr := shutdown(context.WithoutCancel(ctx)); serr != nil {
		log.Debug().Err(serr).Msg("telemetry shutdown")
	}

	cmd.FatalIfErrorf(err)
}

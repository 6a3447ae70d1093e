package app

import (
	"context"
	"io"
	"time"

	"fota-manager/backend/config"
	"fota-manager/backend/initialize"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	fotactlLongDescription = `
fotactl manages the firmware inventory, the device ledgers and the user
list directly on disk, without going through the HTTP server. It reads the
same configuration file and FOTA_* environment variables as the server.
`
	fotactlExample = `
  # create a target type with its first binary
  fotactl targets create ECU-X --version 1.0.0 --file ./ecu-x-1.0.0.bin

  # register a device and push a newer version to it
  fotactl devices add ECU-X SN001 --ip 10.0.0.5 --version 1.0.0
  fotactl versions add ECU-X 2.0.0 --file ./ecu-x-2.0.0.bin
  fotactl push ECU-X SN001 2.0.0
`
)

// GlobalOptions are the flags shared by every subcommand.
type GlobalOptions struct {
	ConfigPath string
	Verbose    bool
}

func NewGlobalOptions() *GlobalOptions {
	return &GlobalOptions{}
}

func AddGlobalFlags(cmd *cobra.Command, o *GlobalOptions) {
	cmd.PersistentFlags().StringVarP(&o.ConfigPath, "config", "c", o.ConfigPath,
		"Path to the YAML config file; empty means defaults plus FOTA_* environment")
	cmd.PersistentFlags().BoolVarP(&o.Verbose, "verbose", "v", o.Verbose, "Log at debug level")
}

// withApp wires the services for one command run and tears them down after.
func (o *GlobalOptions) withApp(fn func(app *initialize.App) error) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return err
	}
	// short lived process, nothing to invalidate
	cfg.Watcher = false
	app, err := initialize.BuildWithConfig(cfg)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = app.Close(ctx)
	}()
	return fn(app)
}

// NewFotactlCommand returns the root command. Results go to out, logs to errOut.
func NewFotactlCommand(out, errOut io.Writer) *cobra.Command {
	opts := NewGlobalOptions()
	cmds := &cobra.Command{
		Use:          "fotactl",
		Short:        "fotactl: offline operator tool for the FOTA inventory",
		Long:         fotactlLongDescription,
		Example:      fotactlExample,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := zerolog.WarnLevel
			if opts.Verbose {
				level = zerolog.DebugLevel
			}
			initialize.SetupLogger(errOut, level)
		},
	}
	cmds.SetOut(out)
	cmds.SetErr(errOut)
	AddGlobalFlags(cmds, opts)

	cmds.AddCommand(NewCmdTargets(out, opts))
	cmds.AddCommand(NewCmdVersions(out, opts))
	cmds.AddCommand(NewCmdDevices(out, opts))
	cmds.AddCommand(NewCmdPush(out, opts))
	cmds.AddCommand(NewCmdUsers(out, opts))

	return cmds
}

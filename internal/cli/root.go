// Package cli implements the tuplestream command line: a stream server, a
// document loader and a query client.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kbukum/tuplestream/logger"
	"github.com/kbukum/tuplestream/observability"
)

const configFlag = "config"

// app carries what the commands share: the loaded config and telemetry.
type app struct {
	configFile string
	cfg        *Config
	telemetry  *observability.Telemetry
}

// NewRootCommand returns the tuplestream command with all subcommands.
func NewRootCommand() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "tuplestream",
		Short: "Compose and run streaming expressions over document collections",
		Long: `tuplestream evaluates streaming expressions (search, facet, intersect, reduce,
unique, cartesianProduct, select) over collections of JSON documents, either
in process or against a stream server.`,
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}
	cmd.PersistentFlags().StringVar(&a.configFile, configFlag, "", "path to config.yml (defaults to the standard search paths)")

	cmd.AddCommand(newServeCommand(a), newLoadCommand(a), newQueryCommand(a), newVersionCommand())
	return cmd
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := Load(a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	logger.Init(cfg.Logging)
	logger.RegisterDefaults("stream", "engine", "backend", "store")
	return a.initTelemetry(cmd.Context())
}

func (a *app) teardown(cmd *cobra.Command, _ []string) error {
	if a.telemetry == nil {
		return nil
	}
	return a.telemetry.Shutdown(context.WithoutCancel(cmd.Context()))
}

func (a *app) initTelemetry(ctx context.Context) error {
	tel, err := observability.Setup(ctx, observability.Service{
		Name:        a.cfg.Name,
		Version:     a.cfg.Version,
		Environment: a.cfg.Environment,
	}, a.cfg.Telemetry)
	if err != nil {
		return err
	}
	a.telemetry = tel
	return nil
}

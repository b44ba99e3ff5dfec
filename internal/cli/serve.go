package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kbukum/tuplestream/engine"
	"github.com/kbukum/tuplestream/logger"
	"github.com/kbukum/tuplestream/server"
	"github.com/kbukum/tuplestream/store"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the stored collections over HTTP",
		Args:  cobra.NoArgs,
		RunE:  a.serve,
	}
}

func (a *app) serve(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(a.cfg.Server, logger.GetGlobalLogger())
	st, err := store.Open(ctx, a.cfg.Store, store.WithRegisterer(srv.Registry()))
	if err != nil {
		return err
	}
	defer st.Close()

	eng := engine.New(st)
	srv.ApplyDefaults(a.cfg.Name, a.cfg.Version, eng, st, st)
	if err := srv.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	return srv.Stop(context.WithoutCancel(ctx))
}

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"morningbrief/internal/app/scheduler"
	"morningbrief/internal/delivery/server"
	"morningbrief/internal/shared/config"
)

func newServeCommand(state *appState) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run the daily schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := state.cfg
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if err := state.validate(cmd, config.ValidateOptions{
				Generate: true,
				Serve:    true,
				Deliver:  cfg.Schedule.Enabled && cfg.Schedule.Deliver,
			}); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, err := buildContainer(ctx, state, containerOptions{})
			if err != nil {
				return &ExitCodeError{Code: exitConfig, Err: err}
			}

			sched, err := scheduler.New(scheduler.Config{
				Enabled:  cfg.Schedule.Enabled,
				Schedule: cfg.Schedule.Cron,
				Location: c.Location,
				Deliver:  cfg.Schedule.Deliver,
			}, c.Runner, state.componentLogger("Scheduler"))
			if err != nil {
				return &ExitCodeError{Code: exitConfig, Err: err}
			}
			if err := sched.Start(ctx); err != nil {
				return err
			}
			defer sched.Stop()

			srv := server.New(server.Config{
				Addr:          cfg.Server.Addr,
				Debug:         cfg.Server.Debug,
				RecipientName: cfg.Email.RecipientName,
			}, c.Runner, state.obs.Metrics, sched, state.componentLogger("Server"))

			fmt.Fprintln(cmd.ErrOrStderr(), successLine("Listening on "+cfg.Server.Addr))
			if cfg.Schedule.Enabled {
				next := sched.Next(time.Now().In(c.Location))
				fmt.Fprintln(cmd.ErrOrStderr(), gray("  next scheduled run "+next.Format("2006-01-02 15:04 MST")))
			}
			return srv.ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/meshwire/meshwire/internal/admin"
	"github.com/meshwire/meshwire/internal/config"
	"github.com/meshwire/meshwire/internal/driver"
	"github.com/meshwire/meshwire/internal/logging"
	"github.com/meshwire/meshwire/internal/observability"
	"github.com/meshwire/meshwire/internal/serialport"
)

const version = "0.1.0"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "meshwirectl",
		Short:         "Host-side driver for the meshwire serial controller",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the daemon version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func newRunCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the driver daemon against a serial port",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "meshwire.toml", "daemon config file")
	return cmd
}

func runDaemon(configPath string) error {
	logging.ConfigureRuntime()
	observability.RegisterMetrics()

	cfg, err := config.LoadDaemonConfig(configPath)
	if err != nil {
		return err
	}

	link, err := serialport.Open(cfg.Port, cfg.Baud)
	if err != nil {
		return err
	}
	defer link.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := log.With().Str("app", "meshwirectl").Logger()
	drv := driver.New(link, cfg.Driver, logger)

	driverErr := make(chan error, 1)
	go func() {
		driverErr <- drv.Run(ctx)
	}()

	go func() {
		if err := drv.Initialize(ctx); err != nil {
			logger.Error().Err(err).Msg("controller initialization failed")
		}
	}()

	go func() {
		for env := range drv.Notifications() {
			logger.Info().
				Stringer("function", env.Function).
				Int("params", len(env.Params)).
				Msg("unsolicited command")
		}
	}()

	adminSrv := admin.NewServer(cfg.AdminAddr, drv, observability.Component(logger, "admin"))
	adminErr := make(chan error, 1)
	go func() {
		adminErr <- adminSrv.Run(ctx)
	}()

	select {
	case err := <-driverErr:
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("driver stopped: %w", err)
	case err := <-adminErr:
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("admin surface stopped: %w", err)
	case <-ctx.Done():
		<-driverErr
		return nil
	}
}

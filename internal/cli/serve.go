package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frameview/frameview/internal/bridge"
	"github.com/frameview/frameview/internal/metrics"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the preview controller to local tooling over HTTP and WebSocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Bridge.Addr = addr
			}

			logger, err := buildLogger(cfg.Logging)
			if err != nil {
				return err
			}

			var collector *metrics.Collector
			if cfg.Bridge.Metrics.Enabled {
				collector = metrics.New()
			}

			orch, err := buildOrchestrator(cfg, collector)
			if err != nil {
				return err
			}
			ctrl, err := buildController(cfg, orch, collector, logger)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			srv, err := bridge.New(cfg.Bridge, ctrl, collector, logger)
			if err != nil {
				return err
			}
			defer srv.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "frameview bridge listening on %s\n", srv.Addr())
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config and FRAMEVIEW_BRIDGE_ADDR)")
	return cmd
}

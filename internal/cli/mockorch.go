package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/frameview/frameview/internal/mockorch"
)

func newMockOrchCmd() *cobra.Command {
	var addr string
	var provisionDelay time.Duration
	var token string
	var failStarts int
	var failProvision bool

	cmd := &cobra.Command{
		Use:   "mock-orch",
		Short: "Run a local fake orchestrator for development",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := buildLogger(cfg.Logging)
			if err != nil {
				return err
			}

			svc := mockorch.New(mockorch.Config{
				ProvisionDelay: provisionDelay,
				FailStarts:     failStarts,
				FailProvision:  failProvision,
				Token:          token,
			}, logger)

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("mock orchestrator listen: %w", err)
			}
			// Surface pages are served by this same process, so the base
			// URL is only known once the listener is bound.
			svc.SetSurfaceBase("http://" + ln.Addr().String())

			httpServer := &http.Server{
				Handler:           svc.Router(),
				ReadHeaderTimeout: 15 * time.Second,
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			fmt.Fprintf(cmd.OutOrStdout(), "mock orchestrator listening on http://%s\n", ln.Addr())

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = httpServer.Shutdown(shutdownCtx)
				return nil
			case err, ok := <-errCh:
				if ok && err != nil {
					return fmt.Errorf("mock orchestrator: %w", err)
				}
				return nil
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:7070", "Listen address")
	cmd.Flags().DurationVar(&provisionDelay, "provision-delay", 3*time.Second, "How long sessions stay in creating before activating")
	cmd.Flags().StringVar(&token, "token", "", "Require this bearer token on session endpoints")
	cmd.Flags().IntVar(&failStarts, "fail-starts", 0, "Fail this many start requests before succeeding")
	cmd.Flags().BoolVar(&failProvision, "fail-provision", false, "Provision every session into the error state")
	return cmd
}

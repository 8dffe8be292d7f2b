package cli

import (
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/frameview/frameview/internal/tui"
)

func newPreviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Open the interactive device-framed preview",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Project.ID == "" {
				return errors.New("no project selected (use --project or FRAMEVIEW_PROJECT_ID)")
			}

			logger, err := buildLogger(cfg.Logging)
			if err != nil {
				return err
			}
			// The alternate screen owns the terminal; only file output
			// survives a TUI run.
			switch cfg.Logging.Output {
			case "", "stderr", "stdout":
				logger = slog.New(slog.NewTextHandler(io.Discard, nil))
			}

			orch, err := buildOrchestrator(cfg, nil)
			if err != nil {
				return err
			}
			ctrl, err := buildController(cfg, orch, nil, logger)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			return tui.Run(ctrl, cfg.Project.ID)
		},
	}
	return cmd
}

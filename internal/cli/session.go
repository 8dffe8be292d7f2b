package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/frameview/frameview/pkg/types"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage preview sessions directly",
	}

	cmd.AddCommand(newSessionStartCmd())
	cmd.AddCommand(newSessionStatusCmd())
	cmd.AddCommand(newSessionStopCmd())
	cmd.AddCommand(newSessionListCmd())

	return cmd
}

func newSessionStartCmd() *cobra.Command {
	var deviceHint string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Ask the orchestrator for a new preview session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Project.ID == "" {
				return errors.New("no project selected (use --project or FRAMEVIEW_PROJECT_ID)")
			}
			c, err := newOrchestratorClient(cfg)
			if err != nil {
				return err
			}
			if deviceHint == "" {
				deviceHint = cfg.Frame.Device
			}
			info, err := c.StartSession(cmd.Context(), types.StartSessionRequest{
				ProjectID:  cfg.Project.ID,
				UserID:     cfg.Project.UserID,
				DeviceHint: deviceHint,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, info)
		},
	}
	cmd.Flags().StringVar(&deviceHint, "device-hint", "", "Device profile id to pass along to the orchestrator")
	return cmd
}

func newSessionStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status SESSION_ID",
		Short: "Show one session's remote status (exits 2 when it reports an error)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			c, err := newOrchestratorClient(cfg)
			if err != nil {
				return err
			}
			info, err := c.SessionStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := printJSON(cmd, info); err != nil {
				return err
			}
			if info.Status == types.RemoteError {
				return &ExitError{code: 2}
			}
			return nil
		},
	}
	return cmd
}

func newSessionStopCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop SESSION_ID",
		Short: "Tear down a preview session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			c, err := newOrchestratorClient(cfg)
			if err != nil {
				return err
			}
			ack, err := c.StopSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, ack)
		},
	}
	return cmd
}

func newSessionListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions known to the orchestrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			c, err := newOrchestratorClient(cfg)
			if err != nil {
				return err
			}
			sessions, err := c.ListSessions(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, sessions)
		},
	}
	return cmd
}

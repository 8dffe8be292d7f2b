package cli

import (
	"github.com/spf13/cobra"
)

func NewRoot(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "frameview",
		Short:         "frameview: device-framed preview sessions for generated apps",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Version = version
	cmd.SetVersionTemplate("frameview {{.Version}}\n")

	cmd.PersistentFlags().String("config", "", "Path to config YAML (default: ./frameview.yml, ./frameview.yaml, or the user config dir)")
	cmd.PersistentFlags().String("orchestrator", "", "Orchestrator base URL (overrides config and FRAMEVIEW_ORCHESTRATOR_URL)")
	cmd.PersistentFlags().String("project", "", "Project to preview (overrides config and FRAMEVIEW_PROJECT_ID)")
	cmd.PersistentFlags().String("device", "", "Initial device profile id (overrides config and FRAMEVIEW_DEVICE)")

	cmd.AddCommand(newPreviewCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSessionCmd())
	cmd.AddCommand(newDevicesCmd())
	cmd.AddCommand(newMockOrchCmd())

	return cmd
}

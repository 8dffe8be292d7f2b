package cli

import (
	"github.com/spf13/cobra"
)

func newDevicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List the device profiles available for framing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			catalog, err := buildCatalog(cfg)
			if err != nil {
				return err
			}
			return printJSON(cmd, catalog.List())
		},
	}
	return cmd
}

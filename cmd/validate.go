package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCommand() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			out := cmd.OutOrStdout()
			if cfgPath != "" {
				fmt.Fprintf(out, "Config path: %s\n", cfgPath)
			} else {
				fmt.Fprintln(out, "No config file given; defaults and environment were used")
			}
			fmt.Fprintf(out, "Listen port: %d\n", cfg.Server.Port)
			fmt.Fprintf(out, "Script model: %s\n", cfg.Script.Model)
			fmt.Fprintf(out, "OpenAI key configured: %t\n", cfg.Script.APIKey != "")
			fmt.Fprintf(out, "SMTP configured: %t\n", cfg.Email.Configured())
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to YAML configuration file")
	return cmd
}

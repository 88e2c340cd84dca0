package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"vostcard-gateway/internal/config"
	"vostcard-gateway/internal/logging"
	"vostcard-gateway/internal/server"
)

func newServeCommand() *cobra.Command {
	var cfgPath string
	var overridePort int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("port") {
				if overridePort <= 0 || overridePort > 65535 {
					return fmt.Errorf("port override %d must be a valid TCP port", overridePort)
				}
				cfg.Server.Port = overridePort
			}

			logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			if !cfg.Email.Configured() {
				slog.Warn("EMAIL_USER or EMAIL_PASS not set; notification endpoints will fail")
			}
			if strings.TrimSpace(cfg.Script.APIKey) == "" {
				slog.Warn("OPENAI_API_KEY not set; script endpoints will fail")
			}

			services, err := server.BuildServices(cfg)
			if err != nil {
				return err
			}

			var opts []server.Option
			if cfgPath != "" {
				opts = append(opts, server.WithConfigWatch(cfgPath))
			}
			srv, err := server.New(cfg, services, opts...)
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to YAML configuration file (defaults and environment only when omitted)")
	cmd.Flags().IntVar(&overridePort, "port", 0, "Override server port from configuration")
	return cmd
}

func loadConfig(path string) (config.Config, error) {
	if strings.TrimSpace(path) == "" {
		return config.Default()
	}
	return config.Load(path)
}

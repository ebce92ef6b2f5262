package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sykell/metabear/internal/logger"
)

func newRootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:           "metabear",
		Short:         "SEO and accessibility auditor",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			if logLevel == "" {
				return nil
			}
			return logger.InitLogger(logLevel)
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when empty")
	cmd.AddCommand(newAuditCmd())
	return cmd
}

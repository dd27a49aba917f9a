package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "mashubctl",
		Short:        "MAS Hub webhook pipeline operator tool",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("env", "", "optional .env file, same as ENVPATH")

	root.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Run one retry sweep and print the report",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	})

	root.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Print webhook pipeline statistics",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	})

	root.AddCommand(&cobra.Command{
		Use:   "replay <webhook-id>",
		Short: "Re-queue a terminally failed webhook",
		Args:  cobra.ExactArgs(1),
		RunE:  runReplay,
	})

	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	})

	signCmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a webhook body read from --in or stdin",
		Args:  cobra.NoArgs,
		RunE:  runSign,
	}
	signCmd.Flags().String("secret", "", "shared secret (defaults to MASHUB_WEBHOOK_SECRET)")
	signCmd.Flags().String("in", "", "body file, stdin if empty")
	signCmd.Flags().Bool("curl", false, "print the signature and timestamp headers as curl flags")
	root.AddCommand(signCmd)

	return root
}

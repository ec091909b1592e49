package root

import (
	"github.com/flarebyte/qr-ostraca/cmd/qrcmp/compare"
	"github.com/flarebyte/qr-ostraca/cmd/qrcmp/diagnose"
	"github.com/flarebyte/qr-ostraca/cmd/qrcmp/version"
	"github.com/flarebyte/qr-ostraca/internal/upload"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for qrcmp.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qrcmp",
		Short: "Reconcile QR codes and barcodes found in images across source directories",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			upload.LoadDotEnv()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(version.NewCmd())
	cmd.AddCommand(compare.NewCmd())
	cmd.AddCommand(diagnose.NewCmd())

	return cmd
}

// Execute runs the root command with provided args.
func Execute(args []string) error {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	return cmd.Execute()
}

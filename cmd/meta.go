package cmd

import (
	"github.com/spf13/cobra"

	"jumpscan.dev/pkg/jumpscan/internal/domain"
)

func newMetaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "meta <file>...",
		Short: "Show size and fingerprint of documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return workflow.Meta(cmd.Context(), domain.MetaArgs{Documents: parsePaths(args)})
		},
	}
}

func init() {
	rootCmd.AddCommand(newMetaCmd())
}

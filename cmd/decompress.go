package cmd

import (
	"github.com/spf13/cobra"

	"jumpscan.dev/pkg/jumpscan/internal/domain"
	m "jumpscan.dev/pkg/jumpscan/internal/model"
)

func newDecompressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decompress <src> [dst]",
		Short: "Expand a .gz, .zst or .lz4 document onto disk",
		Long: `Expand a compressed document so it can be queried. The destination defaults
to the source path without its compression extension and is only replaced
once the whole stream was written.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			decompressArgs := domain.DecompressArgs{Source: m.Path(args[0])}
			if len(args) == 2 {
				decompressArgs.Destination = m.Path(args[1])
			}

			return workflow.Decompress(cmd.Context(), decompressArgs)
		},
	}
}

func init() {
	rootCmd.AddCommand(newDecompressCmd())
}

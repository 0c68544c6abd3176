package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"jumpscan.dev/pkg/jumpscan/internal/domain"
	m "jumpscan.dev/pkg/jumpscan/internal/model"
)

var firstFlagKeys = map[string]string{
	arrayFlagName:       recordsArrayKey,
	derivedPathFlagName: recordsDerivedPathKey,
	skipFlagName:        recordsSkipKey,
}

func newFirstCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "first <file>",
		Short: "Print the first element of a record array",
		Long:  "Print the first element of a record array. Useful to inspect the shape of a new file.",
		Args:  cobra.ExactArgs(1),
		PreRun: func(cmd *cobra.Command, _ []string) {
			bindCommandFlags(cmd, firstFlagKeys)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return workflow.First(cmd.Context(), domain.FirstArgs{
				Document:    m.Path(args[0]),
				ArrayKey:    viper.GetString(recordsArrayKey),
				DerivedPath: viper.GetString(recordsDerivedPathKey),
				SkipArrays:  viper.GetStringSlice(recordsSkipKey),
				UseCache:    !viper.GetBool(noCacheFlagName),
			})
		},
	}

	cmd.Flags().String(arrayFlagName, m.DefaultRecordArray, "key of the record array")
	cmd.Flags().String(derivedPathFlagName, m.DefaultDerivedPath, "JSONPath of derived identifiers (empty disables)")
	cmd.Flags().StringSlice(skipFlagName, nil, "keys of arrays to jump over before the record array (can be repeated)")

	return cmd
}

func init() {
	rootCmd.AddCommand(newFirstCmd())
}

package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"jumpscan.dev/pkg/jumpscan/internal/domain"
	m "jumpscan.dev/pkg/jumpscan/internal/model"
)

const findLongDescription = `Find the element of a record array whose field equals each given value
and print it with the identifiers derived from it.

Each value is looked up with its own pass over the document. The pass stops
at the first matching element, so records near the start of a large file
come back quickly. Use --parallel to search several values at once.`

var findFlagKeys = map[string]string{
	arrayFlagName:       recordsArrayKey,
	fieldFlagName:       recordsFieldKey,
	derivedPathFlagName: recordsDerivedPathKey,
	skipFlagName:        recordsSkipKey,
	parallelFlagName:    scanParallelKey,
}

func newFindCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find <file> <value>...",
		Short: "Find records by field value",
		Long:  findLongDescription,
		Args:  cobra.MinimumNArgs(2),
		PreRun: func(cmd *cobra.Command, _ []string) {
			bindCommandFlags(cmd, findFlagKeys)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return workflow.Find(cmd.Context(), domain.FindArgs{
				Document:    m.Path(args[0]),
				ArrayKey:    viper.GetString(recordsArrayKey),
				Field:       viper.GetString(recordsFieldKey),
				Values:      args[1:],
				DerivedPath: viper.GetString(recordsDerivedPathKey),
				SkipArrays:  viper.GetStringSlice(recordsSkipKey),
				Parallel:    viper.GetInt(scanParallelKey),
				UseCache:    !viper.GetBool(noCacheFlagName),
			})
		},
	}

	cmd.Flags().String(arrayFlagName, m.DefaultRecordArray, "key of the record array")
	cmd.Flags().String(fieldFlagName, m.DefaultMatchField, "field compared with each value")
	cmd.Flags().String(derivedPathFlagName, m.DefaultDerivedPath, "JSONPath of derived identifiers inside a match (empty disables)")
	cmd.Flags().StringSlice(skipFlagName, nil, "keys of arrays to jump over before the record array (can be repeated)")
	cmd.Flags().IntP(parallelFlagName, "p", defaultScanParallel, "number of values searched at the same time")

	return cmd
}

func init() {
	rootCmd.AddCommand(newFindCmd())
}

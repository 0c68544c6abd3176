package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"jumpscan.dev/pkg/jumpscan/internal/domain"
	m "jumpscan.dev/pkg/jumpscan/internal/model"
)

var indexFlagKeys = map[string]string{
	arrayFlagName:    recordsArrayKey,
	fieldFlagName:    recordsFieldKey,
	skipFlagName:     recordsSkipKey,
	limitFlagName:    indexLimitKey,
	spillDirFlagName: indexSpillDirKey,
}

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index <file>",
		Short: "List one field of every element of an array",
		Long: `List one field of every element of an array together with the element's
byte offset. The listing is kept on disk while the document is scanned.`,
		Args: cobra.ExactArgs(1),
		PreRun: func(cmd *cobra.Command, _ []string) {
			bindCommandFlags(cmd, indexFlagKeys)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return workflow.Index(cmd.Context(), domain.IndexArgs{
				Document:   m.Path(args[0]),
				ArrayKey:   viper.GetString(recordsArrayKey),
				Field:      viper.GetString(recordsFieldKey),
				SkipArrays: viper.GetStringSlice(recordsSkipKey),
				Limit:      viper.GetInt(indexLimitKey),
				SpillDir:   m.Path(viper.GetString(indexSpillDirKey)),
			})
		},
	}

	cmd.Flags().String(arrayFlagName, m.DefaultRecordArray, "key of the array to list")
	cmd.Flags().String(fieldFlagName, m.DefaultMatchField, "field listed for each element")
	cmd.Flags().StringSlice(skipFlagName, nil, "keys of arrays to jump over before the listed array (can be repeated)")
	cmd.Flags().IntP(limitFlagName, "n", defaultIndexLimit, "stop after this many elements (0 lists all)")
	cmd.Flags().String(spillDirFlagName, "", "directory for the temporary listing (default system temp dir)")

	return cmd
}

func init() {
	rootCmd.AddCommand(newIndexCmd())
}

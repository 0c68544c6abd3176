package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"jumpscan.dev/pkg/jumpscan/internal/domain"
	m "jumpscan.dev/pkg/jumpscan/internal/model"
)

const collectLongDescription = `Collect the values listed under each identifier of a reference array.

The scan stops as soon as every requested identifier was seen. Identifiers
that never appear are reported as missing. Identifiers are compared as text,
so 7 matches both "7" and 7 in the document.`

var collectFlagKeys = map[string]string{
	arrayFlagName:      referencesArrayKey,
	idFieldFlagName:    referencesIDFieldKey,
	valuesPathFlagName: referencesValuesPathKey,
	skipFlagName:       referencesSkipKey,
}

func newCollectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect <file> <id>...",
		Short: "Collect values for a set of identifiers",
		Long:  collectLongDescription,
		Args:  cobra.MinimumNArgs(1),
		PreRun: func(cmd *cobra.Command, _ []string) {
			bindCommandFlags(cmd, collectFlagKeys)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return workflow.Collect(cmd.Context(), domain.CollectArgs{
				Document:    m.Path(args[0]),
				ArrayKey:    viper.GetString(referencesArrayKey),
				IDField:     viper.GetString(referencesIDFieldKey),
				ValuesPath:  viper.GetString(referencesValuesPathKey),
				Identifiers: args[1:],
				SkipArrays:  viper.GetStringSlice(referencesSkipKey),
				UseCache:    !viper.GetBool(noCacheFlagName),
			})
		},
	}

	cmd.Flags().String(arrayFlagName, m.DefaultReferenceArray, "key of the reference array")
	cmd.Flags().String(idFieldFlagName, m.DefaultIDField, "field holding each element's identifier")
	cmd.Flags().String(valuesPathFlagName, m.DefaultValuesPath, "JSONPath of the values collected per identifier")
	cmd.Flags().StringSlice(skipFlagName, nil, "keys of arrays to jump over before the reference array (can be repeated)")

	return cmd
}

func init() {
	rootCmd.AddCommand(newCollectCmd())
}

// Package cmd provides the root command and CLI setup for jumpscan.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"jumpscan.dev/pkg/jumpscan/internal/adapter"
	"jumpscan.dev/pkg/jumpscan/internal/controller"
	"jumpscan.dev/pkg/jumpscan/internal/domain"
	m "jumpscan.dev/pkg/jumpscan/internal/model"
)

// workflow is built on first use, once flags are parsed. Tests replace it.
var workflow domain.Workflow

var (
	cacheDirFlag  string
	noCacheFlag   bool
	formatFlag    string
	jqFlag        string
	verboseFlag   bool
	logFileFlag   string
	chunkSizeFlag int
	readRateFlag  float64
)

func init() {
	configureRootFlags(rootCmd)
}

const rootLongDescription = `jumpscan pulls single records and identifier-keyed value lists out of
multi-gigabyte JSON documents, such as price transparency in-network rate
files, without loading them into memory.

Documents are streamed in fixed-size chunks. A query jumps straight to the
key of the array it needs and stops reading as soon as it has its answer.`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "jumpscan",
		Short:         "Query huge JSON documents without loading them",
		Long:          rootLongDescription,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			configureLogger(viper.GetString(logFilenameKey), viper.GetBool(logVerboseKey))

			if workflow != nil {
				return nil
			}

			w, err := buildWorkflow(cmd)
			if err != nil {
				return err
			}

			workflow = w

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

// newRootCmd returns a fresh root command with the persistent flags bound.
func newRootCmd() *cobra.Command {
	cmd := baseRootCmd()
	configureRootFlags(cmd)

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.StringVar(&cacheDirFlag, cacheDirFlagName, defaultCacheDir, "directory for cached query results (empty disables the cache)")
	bindFlagToConfig(flags.Lookup(cacheDirFlagName), cacheDirKey)

	flags.BoolVar(&noCacheFlag, noCacheFlagName, defaultNoCache, "ignore cached results and scan again")
	bindFlagToConfig(flags.Lookup(noCacheFlagName), noCacheFlagName)

	flags.StringVarP(&formatFlag, formatFlagName, "f", defaultFormat, "output format: table, json or yaml")
	bindFlagToConfig(flags.Lookup(formatFlagName), formatKey)

	flags.StringVar(&jqFlag, jqFlagName, "", "jq filter applied to the JSON form of the result")
	bindFlagToConfig(flags.Lookup(jqFlagName), jqKey)

	flags.BoolVarP(&verboseFlag, verboseFlagName, "v", defaultLogVerbose, "log at debug level")
	bindFlagToConfig(flags.Lookup(verboseFlagName), logVerboseKey)

	flags.StringVar(&logFileFlag, logFileFlagName, defaultLogFilename, "log file path")
	bindFlagToConfig(flags.Lookup(logFileFlagName), logFilenameKey)

	flags.IntVar(&chunkSizeFlag, chunkSizeFlagName, defaultChunkSize, "bytes read from the document per chunk")
	bindFlagToConfig(flags.Lookup(chunkSizeFlagName), scanChunkSizeKey)

	flags.Float64Var(&readRateFlag, readRateFlagName, defaultReadRate, "maximum read rate in bytes per second (0 is unlimited)")
	bindFlagToConfig(flags.Lookup(readRateFlagName), scanReadRateKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// bindCommandFlags binds flags local to cmd. Commands sharing a config key
// bind when they run so the running command's flag wins.
func bindCommandFlags(cmd *cobra.Command, keys map[string]string) {
	for name, key := range keys {
		bindFlagToConfig(cmd.Flags().Lookup(name), key)
	}
}

func buildWorkflow(cmd *cobra.Command) (domain.Workflow, error) {
	ui, err := controller.NewUI(cmd, controller.IsTTY(cmd.ErrOrStderr()), controller.OutputOptions{
		Format: controller.Format(viper.GetString(formatKey)),
		JQ:     viper.GetString(jqKey),
	})
	if err != nil {
		return nil, fmt.Errorf("configure output: %w", err)
	}

	source := adapter.NewLocalDocumentSource(adapter.WithReadRate(viper.GetFloat64(scanReadRateKey)))
	engine := domain.NewQueryEngine(source, domain.WithChunkSize(viper.GetInt(scanChunkSizeKey)))

	var store adapter.ResultStore
	if dir := viper.GetString(cacheDirKey); dir != "" {
		store = adapter.NewFileResultStore(m.Path(dir))
	}

	return domain.NewWorkflow(source, store, ui, engine, adapter.NewLocalDecompressor()), nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		os.Exit(1)
	}
}

func parsePaths(args []string) []m.Path {
	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}

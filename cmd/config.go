package cmd

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	m "jumpscan.dev/pkg/jumpscan/internal/model"
	"jumpscan.dev/pkg/jumpscan/pkg/jsonscan"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "jumpscan"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	cacheDirFlagName    = "cache-dir"
	noCacheFlagName     = "no-cache"
	formatFlagName      = "format"
	jqFlagName          = "jq"
	verboseFlagName     = "verbose"
	logFileFlagName     = "log-file"
	chunkSizeFlagName   = "chunk-size"
	readRateFlagName    = "read-rate"
	parallelFlagName    = "parallel"
	arrayFlagName       = "array"
	fieldFlagName       = "field"
	derivedPathFlagName = "derived-path"
	skipFlagName        = "skip"
	idFieldFlagName     = "id-field"
	valuesPathFlagName  = "values-path"
	limitFlagName       = "limit"
	spillDirFlagName    = "spill-dir"

	cacheDirKey      = "cache.dir"
	formatKey        = "output.format"
	jqKey            = "output.jq"
	scanChunkSizeKey = "scan.chunk_size"
	scanReadRateKey  = "scan.read_rate"
	scanParallelKey  = "scan.parallel"

	recordsArrayKey       = "records.array"
	recordsFieldKey       = "records.field"
	recordsDerivedPathKey = "records.derived_path"
	recordsSkipKey        = "records.skip"

	referencesArrayKey      = "references.array"
	referencesIDFieldKey    = "references.id_field"
	referencesValuesPathKey = "references.values_path"
	referencesSkipKey       = "references.skip"

	indexLimitKey    = "index.limit"
	indexSpillDirKey = "index.spill_dir"

	defaultCacheDir     = ".jumpscan-cache"
	defaultNoCache      = false
	defaultFormat       = "table"
	defaultChunkSize    = jsonscan.DefaultChunkSize
	defaultReadRate     = 0
	defaultScanParallel = 1
	defaultIndexLimit   = 0

	envPrefix = "JUMPSCAN"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".jumpscan.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(cacheDirKey, defaultCacheDir)
	viper.SetDefault(noCacheFlagName, defaultNoCache)
	viper.SetDefault(formatKey, defaultFormat)
	viper.SetDefault(jqKey, "")
	viper.SetDefault(scanChunkSizeKey, defaultChunkSize)
	viper.SetDefault(scanReadRateKey, defaultReadRate)
	viper.SetDefault(scanParallelKey, defaultScanParallel)

	viper.SetDefault(recordsArrayKey, m.DefaultRecordArray)
	viper.SetDefault(recordsFieldKey, m.DefaultMatchField)
	viper.SetDefault(recordsDerivedPathKey, m.DefaultDerivedPath)
	viper.SetDefault(recordsSkipKey, []string{})

	viper.SetDefault(referencesArrayKey, m.DefaultReferenceArray)
	viper.SetDefault(referencesIDFieldKey, m.DefaultIDField)
	viper.SetDefault(referencesValuesPathKey, m.DefaultValuesPath)
	viper.SetDefault(referencesSkipKey, []string{})

	viper.SetDefault(indexLimitKey, defaultIndexLimit)
	viper.SetDefault(indexSpillDirKey, "")

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return
		}

		return
	}
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger.
//
// By default it logs at Info; if verbose is true it logs at Debug.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}

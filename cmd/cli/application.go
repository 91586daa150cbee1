package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/subsync/internal/synchronize"
	"github.com/temirov/subsync/internal/utils"
	"github.com/temirov/subsync/internal/utils/flags"
)

const (
	applicationNameConstant                 = "subsync"
	applicationShortDescriptionConstant     = "Keep parent repository branches aligned with submodule branches"
	applicationLongDescriptionConstant      = "subsync mirrors the active branches of every submodule onto the parent repository and points each submodule at its matching branch."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format (structured or console)."
	commonLogLevelConfigKeyConstant         = "common.log_level"
	commonLogFormatConfigKeyConstant        = "common.log_format"
	syncConfigurationKeyConstant            = "tools.sync"
	environmentPrefixConstant               = "SUBSYNC"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	workingDirectorySearchPathConstant      = "."
	userConfigurationDirectoryNameConstant  = "subsync"
	configurationInitializedMessageConstant = "configuration initialized"
	logFieldLogLevelConstant                = "log_level"
	logFieldLogFormatConstant               = "log_format"
	logFieldConfigurationFileConstant       = "config_file"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
)

// ApplicationConfiguration is the decoded form of default_config.yaml, configuration files and SUBSYNC_* variables.
type ApplicationConfiguration struct {
	Common ApplicationCommonConfiguration `mapstructure:"common"`
	Tools  ApplicationToolsConfiguration  `mapstructure:"tools"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// ApplicationToolsConfiguration holds per-command configuration.
type ApplicationToolsConfiguration struct {
	Sync synchronize.CommandConfiguration `mapstructure:"sync"`
}

// Application owns the root command. Configuration and the logger are resolved in PersistentPreRunE, so
// subcommands read them lazily through providers.
type Application struct {
	rootCommand         *cobra.Command
	configurationLoader *utils.ConfigurationLoader
	loggerFactory       *utils.LoggerFactory
	logger              *zap.Logger
	configuration       ApplicationConfiguration
	rootFlags           rootFlagValues
}

type rootFlagValues struct {
	configurationFile string
	logLevel          string
	logFormat         string
}

// NewApplication assembles the root command with the sync subcommand attached.
func NewApplication() *Application {
	configurationLoader := utils.NewConfigurationLoader(configurationNameConstant, configurationTypeConstant, environmentPrefixConstant, configurationSearchPaths())
	configurationLoader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())

	application := &Application{
		configurationLoader: configurationLoader,
		loggerFactory:       utils.NewLoggerFactory(),
		logger:              zap.NewNop(),
	}

	rootCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, _ []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, _ []string) error {
			return command.Help()
		},
	}
	rootCommand.SetContext(context.Background())

	persistentFlags := rootCommand.PersistentFlags()
	persistentFlags.StringVar(&application.rootFlags.configurationFile, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	persistentFlags.StringVar(&application.rootFlags.logLevel, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	persistentFlags.StringVar(&application.rootFlags.logFormat, logFormatFlagNameConstant, "", logFormatFlagUsageConstant)

	syncBuilder := synchronize.CommandBuilder{
		LoggerProvider:               func() *zap.Logger { return application.logger },
		HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
		ConfigurationProvider:        func() synchronize.CommandConfiguration { return application.configuration.Tools.Sync },
	}
	if syncCommand, buildError := syncBuilder.Build(); buildError == nil {
		rootCommand.AddCommand(syncCommand)
	}

	application.rootCommand = rootCommand
	return application
}

// Execute runs the command tree against os.Args and flushes the logger afterwards.
func (application *Application) Execute() error {
	if len(os.Args) > 1 {
		application.rootCommand.SetArgs(flags.NormalizeToggleArguments(os.Args[1:]))
	}
	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil {
		return errors.Join(executionError, fmt.Errorf(loggerSyncErrorTemplateConstant, syncError))
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

// configurationSearchPaths lists the working directory followed by the user configuration directory.
func configurationSearchPaths() []string {
	searchPaths := []string{workingDirectorySearchPathConstant}
	if userConfigurationDirectory, directoryError := os.UserConfigDir(); directoryError == nil {
		searchPaths = append(searchPaths, filepath.Join(userConfigurationDirectory, userConfigurationDirectoryNameConstant))
	}
	return searchPaths
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := synchronize.DefaultConfigurationValues(syncConfigurationKeyConstant)
	defaultValues[commonLogLevelConfigKeyConstant] = string(utils.LogLevelInfo)
	defaultValues[commonLogFormatConfigKeyConstant] = string(utils.LogFormatStructured)

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.rootFlags.configurationFile, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	rootFlagSet := command.Root().PersistentFlags()
	if rootFlagSet.Changed(logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.rootFlags.logLevel
	}
	if rootFlagSet.Changed(logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.rootFlags.logFormat
	}

	logger, loggerError := application.loggerFactory.CreateLogger(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
	)
	if loggerError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerError)
	}
	application.logger = logger
	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(logFieldLogLevelConstant, application.configuration.Common.LogLevel),
		zap.String(logFieldLogFormatConstant, application.configuration.Common.LogFormat),
		zap.String(logFieldConfigurationFileConstant, loadedConfiguration.ConfigFileUsed),
	)

	command.SetContext(utils.NewCommandContextAccessor().WithConfigurationFilePath(command.Context(), loadedConfiguration.ConfigFileUsed))
	return nil
}

func (application *Application) humanReadableLoggingEnabled() bool {
	return strings.EqualFold(strings.TrimSpace(application.configuration.Common.LogFormat), string(utils.LogFormatConsole))
}

// flushLogger syncs the logger, ignoring the errors stderr returns when it is a terminal or pipe.
func (application *Application) flushLogger() error {
	if application.logger == nil {
		return nil
	}
	syncError := application.logger.Sync()
	for _, ignoredError := range []error{syscall.ENOTSUP, syscall.EINVAL, syscall.ENOTTY} {
		if errors.Is(syncError, ignoredError) {
			return nil
		}
	}
	return syncError
}

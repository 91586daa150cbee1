package synchronize

import (
	"fmt"
	"strings"

	"github.com/lucsky/cuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/subsync/internal/execshell"
	"github.com/temirov/subsync/internal/report"
	"github.com/temirov/subsync/internal/repos/filesystem"
	"github.com/temirov/subsync/internal/repos/shared"
	"github.com/temirov/subsync/internal/repository"
	"github.com/temirov/subsync/internal/repository/gitcli"
	"github.com/temirov/subsync/internal/ui"
	"github.com/temirov/subsync/internal/utils"
	"github.com/temirov/subsync/internal/utils/flags"
	pathutils "github.com/temirov/subsync/internal/utils/path"
)

const (
	commandUseConstant                        = "sync"
	commandShortDescriptionConstant           = "Align parent branches with active submodule branches"
	commandLongDescriptionConstant            = "sync clones the parent repository, removes branches no submodule still works on, creates branches for new submodule work, and points every submodule at its matching branch."
	urlFlagNameConstant                       = "url"
	urlFlagShorthandConstant                  = "g"
	urlFlagUsageConstant                      = "Parent repository URL"
	folderFlagNameConstant                    = "folder"
	folderFlagShorthandConstant               = "f"
	folderFlagUsageConstant                   = "Workspace folder for the parent clone (temporary when empty)"
	userFlagNameConstant                      = "user"
	userFlagShorthandConstant                 = "u"
	userFlagUsageConstant                     = "User name for HTTP authentication"
	passwordFlagNameConstant                  = "password"
	passwordFlagShorthandConstant             = "p"
	passwordFlagUsageConstant                 = "Password or token for HTTP authentication"
	committerNameFlagNameConstant             = "committer-name"
	committerNameFlagShorthandConstant        = "c"
	committerNameFlagUsageConstant            = "Committer name used when a tip author is unknown"
	committerEmailFlagNameConstant            = "committer-email"
	committerEmailFlagShorthandConstant       = "e"
	committerEmailFlagUsageConstant           = "Committer email used when a tip author is unknown"
	reportFlagNameConstant                    = "report"
	reportFlagShorthandConstant               = "r"
	reportFlagUsageConstant                   = "Path of the generated report"
	reportFormatFlagNameConstant              = "report-format"
	reportFormatFlagUsageConstant             = "Report format."
	thresholdFlagNameConstant                 = "inactivity-threshold"
	thresholdFlagShorthandConstant            = "i"
	thresholdFlagUsageConstant                = "Days without commits after which a branch is inactive (negative disables filtering)"
	defaultBranchFlagNameConstant             = "default-branch"
	defaultBranchFlagUsageConstant            = "Parent default branch (detected when empty)"
	reportPermissionsConstant                 = 0o644
	reportWriteErrorTemplateConstant          = "write report %s: %w"
	reportRenderErrorTemplateConstant         = "render report: %w"
	workspaceCleanupFailedMessageConstant     = "unable to remove temporary workspace"
	reportWrittenTemplateConstant             = "Report written to %s\n"
	runStartedMessageConstant                 = "sync command started"
	logFieldReportConstant                    = "report"
	logFieldReportFormatConstant              = "report_format"
	logFieldThresholdConstant                 = "inactivity_threshold_days"
	logFieldConfigurationFileConstant         = "config_file"
	executorConstructionErrorTemplateConstant = "construct git executor: %w"
)

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the sync command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	ConfigurationProvider        func() CommandConfiguration
	HumanReadableLoggingProvider func() bool
	GitExecutor                  shared.GitExecutor
	Opener                       repository.Opener
	FileSystem                   shared.FileSystem
	Clock                        shared.Clock
	RunIdentifierProvider        func() string
}

type commandFlagValues struct {
	url                 string
	folder              string
	user                string
	password            string
	committerName       string
	committerEmail      string
	report              string
	reportFormat        string
	inactivityThreshold int
	defaultBranch       string
	execution           *flags.ExecutionFlagValues
}

// Build constructs the sync command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	defaults := DefaultCommandConfiguration()
	values := &commandFlagValues{}

	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			return builder.run(command, values)
		},
	}

	flagSet := command.Flags()
	flagSet.StringVarP(&values.url, urlFlagNameConstant, urlFlagShorthandConstant, "", urlFlagUsageConstant)
	flagSet.StringVarP(&values.folder, folderFlagNameConstant, folderFlagShorthandConstant, "", folderFlagUsageConstant)
	flagSet.StringVarP(&values.user, userFlagNameConstant, userFlagShorthandConstant, "", userFlagUsageConstant)
	flagSet.StringVarP(&values.password, passwordFlagNameConstant, passwordFlagShorthandConstant, "", passwordFlagUsageConstant)
	flagSet.StringVarP(&values.committerName, committerNameFlagNameConstant, committerNameFlagShorthandConstant, "", committerNameFlagUsageConstant)
	flagSet.StringVarP(&values.committerEmail, committerEmailFlagNameConstant, committerEmailFlagShorthandConstant, "", committerEmailFlagUsageConstant)
	flagSet.StringVarP(&values.report, reportFlagNameConstant, reportFlagShorthandConstant, defaults.Report, reportFlagUsageConstant)
	flags.AddChoiceFlag(flagSet, &values.reportFormat, reportFormatFlagNameConstant, "", defaults.ReportFormat, report.SupportedFormats(), reportFormatFlagUsageConstant)
	flagSet.IntVarP(&values.inactivityThreshold, thresholdFlagNameConstant, thresholdFlagShorthandConstant, defaults.InactivityThresholdDays, thresholdFlagUsageConstant)
	flagSet.StringVar(&values.defaultBranch, defaultBranchFlagNameConstant, "", defaultBranchFlagUsageConstant)
	values.execution = flags.BindExecutionFlags(command, flags.ExecutionDefaults{}, flags.DefaultExecutionFlagDefinitions())
	flags.EnsureRemoteFlag(command, defaults.RemoteName, flags.RemoteFlagUsage)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, values *commandFlagValues) error {
	configuration := builder.applyFlagOverrides(command, builder.resolveConfiguration(), values).Sanitize()
	if validationError := configuration.Validate(); validationError != nil {
		_ = command.Help()
		return validationError
	}
	reportFormat, formatError := report.ParseFormat(configuration.ReportFormat)
	if formatError != nil {
		return formatError
	}

	runIdentifier := builder.resolveRunIdentifier()
	logger := utils.WithRunIdentifier(builder.resolveLogger(), runIdentifier)
	contextAccessor := utils.NewCommandContextAccessor()
	executionContext := contextAccessor.WithRunIdentifier(command.Context(), runIdentifier)
	configurationFilePath, _ := contextAccessor.ConfigurationFilePath(executionContext)

	logger.Info(
		runStartedMessageConstant,
		zap.String(logFieldURLConstant, ui.RedactURL(configuration.URL)),
		zap.String(logFieldWorkspaceConstant, configuration.Folder),
		zap.Bool(logFieldDryRunConstant, configuration.DryRun),
		zap.Int(logFieldThresholdConstant, configuration.InactivityThresholdDays),
		zap.String(logFieldReportConstant, configuration.Report),
		zap.String(logFieldReportFormatConstant, configuration.ReportFormat),
		zap.String(logFieldConfigurationFileConstant, configurationFilePath),
	)

	fileSystem := builder.FileSystem
	if fileSystem == nil {
		fileSystem = filesystem.OSFileSystem{}
	}

	opener, openerError := builder.resolveOpener(logger, fileSystem, configuration)
	if openerError != nil {
		return openerError
	}

	workspaceManager, managerError := NewWorkspaceManager(logger, fileSystem, opener)
	if managerError != nil {
		return managerError
	}

	homeExpander := pathutils.NewHomeExpander()
	workspace, prepareError := workspaceManager.Prepare(executionContext, WorkspaceOptions{
		RemoteURL:      configuration.URL,
		Folder:         homeExpander.Expand(configuration.Folder),
		ReuseWorkspace: configuration.ReuseWorkspace,
		DefaultBranch:  configuration.DefaultBranch,
		Credentials:    configuration.Credentials(),
	})
	if prepareError != nil {
		return prepareError
	}
	defer func() {
		if cleanupError := workspace.Cleanup(); cleanupError != nil {
			logger.Warn(workspaceCleanupFailedMessageConstant, zap.String(logFieldWorkspaceConstant, workspace.Path), zap.Error(cleanupError))
		}
	}()

	syncContext := SyncContext{
		RemoteName:              configuration.RemoteName,
		DefaultBranch:           workspace.DefaultBranch,
		Credentials:             configuration.Credentials(),
		DefaultIdentity:         configuration.DefaultIdentity(),
		InactivityThresholdDays: configuration.InactivityThresholdDays,
		DryRun:                  configuration.DryRun,
		Clock:                   builder.Clock,
	}

	accumulator := report.NewAccumulator(configuration.DryRun)
	if _, synchronizeError := NewService(logger).Synchronize(executionContext, syncContext, workspace.Repository, accumulator); synchronizeError != nil {
		return synchronizeError
	}

	renderedReport, renderError := accumulator.Render(reportFormat)
	if renderError != nil {
		return fmt.Errorf(reportRenderErrorTemplateConstant, renderError)
	}
	reportPath := homeExpander.Expand(configuration.Report)
	if writeError := fileSystem.WriteFile(reportPath, renderedReport, reportPermissionsConstant); writeError != nil {
		return repository.NewOperationError(repository.ErrorKindIOFailure, logFieldReportConstant, fmt.Errorf(reportWriteErrorTemplateConstant, reportPath, writeError))
	}

	if summaryError := accumulator.WriteSummary(command.OutOrStdout(), builder.humanReadableLogging()); summaryError != nil {
		return summaryError
	}
	shared.NewWriterReporter(command.OutOrStdout()).Printf(reportWrittenTemplateConstant, reportPath)
	return nil
}

func (builder *CommandBuilder) applyFlagOverrides(command *cobra.Command, configuration CommandConfiguration, values *commandFlagValues) CommandConfiguration {
	flagSet := command.Flags()
	stringOverrides := []struct {
		flagName string
		value    string
		target   *string
	}{
		{flagName: urlFlagNameConstant, value: values.url, target: &configuration.URL},
		{flagName: folderFlagNameConstant, value: values.folder, target: &configuration.Folder},
		{flagName: userFlagNameConstant, value: values.user, target: &configuration.User},
		{flagName: passwordFlagNameConstant, value: values.password, target: &configuration.Password},
		{flagName: committerNameFlagNameConstant, value: values.committerName, target: &configuration.CommitterName},
		{flagName: committerEmailFlagNameConstant, value: values.committerEmail, target: &configuration.CommitterEmail},
		{flagName: reportFlagNameConstant, value: values.report, target: &configuration.Report},
		{flagName: reportFormatFlagNameConstant, value: values.reportFormat, target: &configuration.ReportFormat},
		{flagName: defaultBranchFlagNameConstant, value: values.defaultBranch, target: &configuration.DefaultBranch},
	}
	for _, override := range stringOverrides {
		if flagSet.Changed(override.flagName) {
			*override.target = override.value
		}
	}

	if flagSet.Changed(thresholdFlagNameConstant) {
		configuration.InactivityThresholdDays = values.inactivityThreshold
	}
	if flagSet.Changed(flags.DryRunFlagName) {
		configuration.DryRun = values.execution.DryRun
	}
	if flagSet.Changed(flags.ReuseWorkspaceFlagName) {
		configuration.ReuseWorkspace = values.execution.ReuseWorkspace
	}
	if flagSet.Changed(flags.RemoteFlagName) {
		if remoteName, remoteError := flagSet.GetString(flags.RemoteFlagName); remoteError == nil {
			configuration.RemoteName = remoteName
		}
	}
	return configuration
}

func (builder *CommandBuilder) resolveOpener(logger *zap.Logger, fileSystem shared.FileSystem, configuration CommandConfiguration) (repository.Opener, error) {
	if builder.Opener != nil {
		return builder.Opener, nil
	}

	gitExecutor := builder.GitExecutor
	if gitExecutor == nil {
		shellExecutor, executorError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner())
		if executorError != nil {
			return nil, fmt.Errorf(executorConstructionErrorTemplateConstant, executorError)
		}
		if builder.humanReadableLogging() {
			shellExecutor = shellExecutor.WithObserver(ui.NewConsoleCommandEventLogger(logger))
		}
		gitExecutor = shellExecutor
	}

	return gitcli.NewOpener(gitExecutor, fileSystem, gitcli.OpenerConfiguration{
		RemoteName:  configuration.RemoteName,
		Credentials: configuration.Credentials(),
	})
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveRunIdentifier() string {
	if builder.RunIdentifierProvider != nil {
		if runIdentifier := strings.TrimSpace(builder.RunIdentifierProvider()); len(runIdentifier) > 0 {
			return runIdentifier
		}
	}
	return cuid.New()
}

func (builder *CommandBuilder) humanReadableLogging() bool {
	if builder.HumanReadableLoggingProvider == nil {
		return false
	}
	return builder.HumanReadableLoggingProvider()
}


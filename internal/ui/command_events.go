package ui

import (
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/subsync/internal/execshell"
)

const (
	redactedPasswordConstant = "xxxxx"
	urlSchemeMarkerConstant  = "://"
)

// CommandEventFormatter builds human-readable messages for git lifecycle events with credentials removed from
// URL arguments.
type CommandEventFormatter struct {
	messages execshell.CommandMessageFormatter
}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandEventFormatter) BuildStartedMessage(command execshell.ShellCommand) string {
	return formatter.messages.BuildStartedMessage(RedactCommand(command))
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandEventFormatter) BuildSuccessMessage(command execshell.ShellCommand) string {
	return formatter.messages.BuildSuccessMessage(RedactCommand(command))
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandEventFormatter) BuildFailureMessage(command execshell.ShellCommand, result execshell.ExecutionResult) string {
	return formatter.messages.BuildFailureMessage(RedactCommand(command), result)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandEventFormatter) BuildExecutionFailureMessage(command execshell.ShellCommand, failure error) string {
	return formatter.messages.BuildExecutionFailureMessage(RedactCommand(command), failure)
}

// RedactCommand returns a copy of the command whose URL arguments carry no password.
func RedactCommand(command execshell.ShellCommand) execshell.ShellCommand {
	if len(command.Details.Arguments) == 0 {
		return command
	}
	redactedArguments := make([]string, len(command.Details.Arguments))
	for argumentIndex, argument := range command.Details.Arguments {
		redactedArguments[argumentIndex] = RedactURL(argument)
	}
	command.Details.Arguments = redactedArguments
	return command
}

// RedactURL masks the password embedded in a URL. Values that are not URLs are returned unchanged.
func RedactURL(value string) string {
	if !strings.Contains(value, urlSchemeMarkerConstant) {
		return value
	}
	parsed, parseError := url.Parse(value)
	if parseError != nil || parsed.User == nil {
		return value
	}
	if _, hasPassword := parsed.User.Password(); !hasPassword {
		return value
	}
	parsed.User = url.UserPassword(parsed.User.Username(), redactedPasswordConstant)
	return parsed.String()
}

// ConsoleCommandEventLogger renders command lifecycle events using a zap logger configured for human-readable output.
type ConsoleCommandEventLogger struct {
	logger    *zap.Logger
	formatter CommandEventFormatter
}

// NewConsoleCommandEventLogger constructs a console event logger backed by the provided zap logger.
func NewConsoleCommandEventLogger(logger *zap.Logger) *ConsoleCommandEventLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleCommandEventLogger{logger: logger, formatter: CommandEventFormatter{}}
}

// CommandStarted implements execshell.CommandEventObserver by logging command start notifications.
func (eventLogger *ConsoleCommandEventLogger) CommandStarted(command execshell.ShellCommand) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Info(eventLogger.formatter.BuildStartedMessage(command))
}

// CommandCompleted implements execshell.CommandEventObserver by logging command completion notifications.
func (eventLogger *ConsoleCommandEventLogger) CommandCompleted(command execshell.ShellCommand, result execshell.ExecutionResult) {
	if eventLogger == nil {
		return
	}
	if result.ExitCode == 0 {
		eventLogger.logger.Info(eventLogger.formatter.BuildSuccessMessage(command))
		return
	}
	eventLogger.logger.Warn(eventLogger.formatter.BuildFailureMessage(command, result))
}

// CommandExecutionFailed implements execshell.CommandEventObserver by logging unexpected execution failures.
func (eventLogger *ConsoleCommandEventLogger) CommandExecutionFailed(command execshell.ShellCommand, failure error) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Error(eventLogger.formatter.BuildExecutionFailureMessage(command, failure))
}

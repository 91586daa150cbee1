package execshell

import (
	"fmt"
	"strings"
)

const (
	startTemplateConstant                = "%s %s"
	failureTemplateConstant              = "Failed to %s %s (exit code %d%s)"
	executionFailureTemplateConstant     = "Unable to %s %s: %s"
	genericStartTemplateConstant         = "Running %s"
	genericSuccessTemplateConstant       = "Completed %s"
	genericFailureTemplateConstant       = "%s failed with exit code %d%s"
	genericExecutionFailureConstant      = "%s failed: %s"
	workingDirectorySuffixConstant       = " (in %s)"
	standardErrorSuffixTemplateConstant  = ": %s"
	unknownFailureMessageConstant        = "unknown error"
	currentDirectoryLabelConstant        = "current directory"
	unknownValueLabelConstant            = "unknown"
	argumentSeparatorConstant            = " "
	listSeparatorConstant                = ", "
	flagPrefixConstant                   = "-"
	pathSeparatorArgumentConstant        = "--"
	refSpecSeparatorConstant             = ":"
	headReferenceConstant                = "HEAD"
	commitMessageFlagConstant            = "-m"
	createBranchFlagConstant             = "-b"
	deleteBranchFlagConstant             = "--delete"
	insideWorkTreeFlagConstant           = "--is-inside-work-tree"
	abbreviatedReferenceFlagConstant     = "--abbrev-ref"
	originFlagConstant                   = "--origin"
	inDirectoryTemplateConstant          = "in %s"
	targetInDirectoryTemplateConstant    = "%s in %s"
	cloneObjectTemplateConstant          = "%s into %s"
	switchObjectTemplateConstant         = "%s to branch %s"
	pushObjectTemplateConstant           = "%s to %s from %s"
	remoteDeletionObjectTemplateConstant = "remote branch %s from %s in %s"
	commitObjectTemplateConstant         = "commit in %s with message %q"
	remoteObjectTemplateConstant         = "%s remote for %s"
)

// gitVerb holds the three inflections every lifecycle message is built from.
type gitVerb struct {
	base        string
	progressive string
	past        string
}

var (
	cloneVerb          = gitVerb{base: "clone", progressive: "Cloning", past: "Cloned"}
	probeVerb          = gitVerb{base: "confirm a Git repository", progressive: "Confirming a Git repository", past: "Confirmed a Git repository"}
	currentBranchVerb  = gitVerb{base: "identify current branch", progressive: "Identifying current branch", past: "Identified current branch"}
	readRemoteVerb     = gitVerb{base: "read", progressive: "Reading", past: "Read"}
	remoteHeadVerb     = gitVerb{base: "resolve remote default branch", progressive: "Resolving remote default branch", past: "Resolved remote default branch"}
	statusVerb         = gitVerb{base: "review working tree status", progressive: "Reviewing working tree status", past: "Reviewed working tree status"}
	switchVerb         = gitVerb{base: "switch", progressive: "Switching", past: "Switched"}
	restoreVerb        = gitVerb{base: "restore", progressive: "Restoring", past: "Restored"}
	deleteLocalVerb    = gitVerb{base: "remove local branch", progressive: "Removing local branch", past: "Removed local branch"}
	createBranchVerb   = gitVerb{base: "create branch", progressive: "Creating branch", past: "Created branch"}
	pullVerb           = gitVerb{base: "pull latest changes", progressive: "Pulling latest changes", past: "Pulled latest changes"}
	pushVerb           = gitVerb{base: "push", progressive: "Pushing", past: "Pushed"}
	deleteRemoteVerb   = gitVerb{base: "delete", progressive: "Deleting", past: "Deleted"}
	stageVerb          = gitVerb{base: "stage", progressive: "Staging", past: "Staged"}
	commitVerb         = gitVerb{base: "create", progressive: "Creating", past: "Created"}
	listReferencesVerb = gitVerb{base: "list", progressive: "Listing", past: "Listed"}
	listIndexVerb      = gitVerb{base: "read index entries", progressive: "Reading index entries", past: "Read index entries"}
	initSubmoduleVerb  = gitVerb{base: "initialize submodule", progressive: "Initializing submodule", past: "Initialized submodule"}
	showCommitVerb     = gitVerb{base: "read commit", progressive: "Reading commit", past: "Read commit"}
)

// gitActivity is a verb applied to an object phrase, e.g. "Cloning" + "<url> into <path>".
type gitActivity struct {
	verb   gitVerb
	object string
}

// activityDescriber interprets the arguments following a git subcommand. It reports false when the
// arguments do not match a known shape, which selects the generic message.
type activityDescriber func(arguments []string, directory string) (gitActivity, bool)

var gitActivityDescribers = map[string]activityDescriber{
	"clone":        describeClone,
	"rev-parse":    describeRevParse,
	"remote":       describeRemote,
	"symbolic-ref": describeInDirectory(remoteHeadVerb),
	"status":       describeInDirectory(statusVerb),
	"pull":         describeInDirectory(pullVerb),
	"ls-files":     describeInDirectory(listIndexVerb),
	"checkout":     describeCheckout,
	"branch":       describeBranch,
	"push":         describePush,
	"add":          describeTarget(stageVerb, pathArguments),
	"for-each-ref": describeTarget(listReferencesVerb, positionalArguments),
	"submodule":    describeTarget(initSubmoduleVerb, pathArguments),
	"show":         describeTarget(showCommitVerb, lastArgument),
	"commit":       describeCommit,
}

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	if activity, known := describeActivity(command); known {
		return fmt.Sprintf(startTemplateConstant, activity.verb.progressive, activity.object)
	}
	return fmt.Sprintf(genericStartTemplateConstant, commandLabel(command))
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	if activity, known := describeActivity(command); known {
		return fmt.Sprintf(startTemplateConstant, activity.verb.past, activity.object)
	}
	return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel(command))
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	errorSuffix := standardErrorSuffix(result.StandardError)
	if activity, known := describeActivity(command); known {
		return fmt.Sprintf(failureTemplateConstant, activity.verb.base, activity.object, result.ExitCode, errorSuffix)
	}
	return fmt.Sprintf(genericFailureTemplateConstant, commandLabel(command), result.ExitCode, errorSuffix)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	failureDescription := unknownFailureMessageConstant
	if failure != nil {
		failureDescription = failure.Error()
	}
	if activity, known := describeActivity(command); known {
		return fmt.Sprintf(executionFailureTemplateConstant, activity.verb.base, activity.object, failureDescription)
	}
	return fmt.Sprintf(genericExecutionFailureConstant, commandLabel(command), failureDescription)
}

func describeActivity(command ShellCommand) (gitActivity, bool) {
	if command.Name != CommandGit || len(command.Details.Arguments) == 0 {
		return gitActivity{}, false
	}
	describer, known := gitActivityDescribers[strings.TrimSpace(command.Details.Arguments[0])]
	if !known {
		return gitActivity{}, false
	}
	return describer(command.Details.Arguments[1:], directoryLabel(command))
}

func describeInDirectory(verb gitVerb) activityDescriber {
	return func(_ []string, directory string) (gitActivity, bool) {
		return gitActivity{verb: verb, object: fmt.Sprintf(inDirectoryTemplateConstant, directory)}, true
	}
}

func describeTarget(verb gitVerb, selectTarget func([]string) string) activityDescriber {
	return func(arguments []string, directory string) (gitActivity, bool) {
		return gitActivity{verb: verb, object: fmt.Sprintf(targetInDirectoryTemplateConstant, orUnknown(selectTarget(arguments)), directory)}, true
	}
}

func describeClone(arguments []string, _ string) (gitActivity, bool) {
	positional := positionalList(arguments)
	if len(positional) < 2 {
		return gitActivity{}, false
	}
	return gitActivity{verb: cloneVerb, object: fmt.Sprintf(cloneObjectTemplateConstant, positional[0], positional[1])}, true
}

func describeRevParse(arguments []string, directory string) (gitActivity, bool) {
	switch {
	case containsArgument(arguments, insideWorkTreeFlagConstant):
		return gitActivity{verb: probeVerb, object: fmt.Sprintf(inDirectoryTemplateConstant, directory)}, true
	case containsArgument(arguments, abbreviatedReferenceFlagConstant):
		return gitActivity{verb: currentBranchVerb, object: fmt.Sprintf(inDirectoryTemplateConstant, directory)}, true
	default:
		return gitActivity{}, false
	}
}

func describeRemote(arguments []string, directory string) (gitActivity, bool) {
	positional := positionalList(arguments)
	if len(positional) < 2 {
		return gitActivity{}, false
	}
	return gitActivity{verb: readRemoteVerb, object: fmt.Sprintf(remoteObjectTemplateConstant, positional[1], directory)}, true
}

func describeCheckout(arguments []string, directory string) (gitActivity, bool) {
	if separatorIndex := indexOf(arguments, pathSeparatorArgumentConstant); separatorIndex >= 0 {
		restoredPaths := strings.Join(arguments[separatorIndex+1:], listSeparatorConstant)
		return gitActivity{verb: restoreVerb, object: fmt.Sprintf(targetInDirectoryTemplateConstant, orUnknown(restoredPaths), directory)}, true
	}
	branchName := flagValue(arguments, createBranchFlagConstant)
	if len(branchName) == 0 {
		branchName = firstArgument(positionalList(arguments))
	}
	if len(branchName) == 0 || branchName == headReferenceConstant {
		return gitActivity{}, false
	}
	return gitActivity{verb: switchVerb, object: fmt.Sprintf(switchObjectTemplateConstant, directory, branchName)}, true
}

func describeBranch(arguments []string, directory string) (gitActivity, bool) {
	branchName := orUnknown(firstArgument(positionalList(arguments)))
	verb := createBranchVerb
	if containsArgument(arguments, deleteBranchFlagConstant) {
		verb = deleteLocalVerb
	}
	return gitActivity{verb: verb, object: fmt.Sprintf(targetInDirectoryTemplateConstant, branchName, directory)}, true
}

func describePush(arguments []string, directory string) (gitActivity, bool) {
	positional := positionalList(arguments)
	if len(positional) < 2 {
		return gitActivity{}, false
	}
	remoteName, references := positional[0], positional[1:]

	deletedReferences := make([]string, 0, len(references))
	for _, reference := range references {
		if strings.HasPrefix(reference, refSpecSeparatorConstant) {
			deletedReferences = append(deletedReferences, strings.TrimPrefix(reference, refSpecSeparatorConstant))
		}
	}
	if len(deletedReferences) == len(references) {
		return gitActivity{verb: deleteRemoteVerb, object: fmt.Sprintf(remoteDeletionObjectTemplateConstant, strings.Join(deletedReferences, listSeparatorConstant), remoteName, directory)}, true
	}
	return gitActivity{verb: pushVerb, object: fmt.Sprintf(pushObjectTemplateConstant, strings.Join(references, listSeparatorConstant), remoteName, directory)}, true
}

func describeCommit(arguments []string, directory string) (gitActivity, bool) {
	subject, _, _ := strings.Cut(flagValue(arguments, commitMessageFlagConstant), "\n")
	return gitActivity{verb: commitVerb, object: fmt.Sprintf(commitObjectTemplateConstant, directory, strings.TrimSpace(subject))}, true
}

func commandLabel(command ShellCommand) string {
	label := strings.Join(append([]string{string(command.Name)}, command.Details.Arguments...), argumentSeparatorConstant)
	if workingDirectory := strings.TrimSpace(command.Details.WorkingDirectory); len(workingDirectory) > 0 {
		label += fmt.Sprintf(workingDirectorySuffixConstant, workingDirectory)
	}
	return label
}

func directoryLabel(command ShellCommand) string {
	if workingDirectory := strings.TrimSpace(command.Details.WorkingDirectory); len(workingDirectory) > 0 {
		return workingDirectory
	}
	return currentDirectoryLabelConstant
}

func standardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return ""
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func positionalList(arguments []string) []string {
	positional := make([]string, 0, len(arguments))
	for argumentIndex := 0; argumentIndex < len(arguments); argumentIndex++ {
		argument := strings.TrimSpace(arguments[argumentIndex])
		switch {
		case argument == pathSeparatorArgumentConstant:
			return positional
		case argument == createBranchFlagConstant || argument == commitMessageFlagConstant || argument == originFlagConstant:
			argumentIndex++
		case strings.HasPrefix(argument, flagPrefixConstant):
		case len(argument) > 0:
			positional = append(positional, argument)
		}
	}
	return positional
}

func positionalArguments(arguments []string) string {
	return strings.Join(positionalList(arguments), argumentSeparatorConstant)
}

func pathArguments(arguments []string) string {
	if separatorIndex := indexOf(arguments, pathSeparatorArgumentConstant); separatorIndex >= 0 {
		return strings.Join(arguments[separatorIndex+1:], listSeparatorConstant)
	}
	return positionalArguments(arguments)
}

func lastArgument(arguments []string) string {
	if len(arguments) == 0 {
		return ""
	}
	return strings.TrimSpace(arguments[len(arguments)-1])
}

func firstArgument(arguments []string) string {
	if len(arguments) == 0 {
		return ""
	}
	return arguments[0]
}

func flagValue(arguments []string, flag string) string {
	if flagIndex := indexOf(arguments, flag); flagIndex >= 0 && flagIndex+1 < len(arguments) {
		return strings.TrimSpace(arguments[flagIndex+1])
	}
	return ""
}

func containsArgument(arguments []string, value string) bool {
	return indexOf(arguments, value) >= 0
}

func indexOf(arguments []string, value string) int {
	for argumentIndex, argument := range arguments {
		if strings.TrimSpace(argument) == value {
			return argumentIndex
		}
	}
	return -1
}

func orUnknown(value string) string {
	if len(strings.TrimSpace(value)) == 0 {
		return unknownValueLabelConstant
	}
	return value
}
